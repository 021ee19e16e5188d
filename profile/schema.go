// Package profile detects, backs up, migrates, and parses user wheel
// profiles across schema versions.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is {major, minor} with an optional pre-release tag,
// canonical string form "wheel.profile/<major>[.<minor>][-<prerelease>]".
type SchemaVersion struct {
	Major      int
	Minor      int
	PreRelease string
}

// Current is the shipping schema version every migration advances to.
var Current = SchemaVersion{Major: 1, Minor: 0}

const schemaPrefix = "wheel.profile/"

func (v SchemaVersion) String() string {
	s := fmt.Sprintf("%s%d", schemaPrefix, v.Major)
	if v.Minor != 0 {
		s += "." + strconv.Itoa(v.Minor)
	}
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	return s
}

// IsCurrent reports whether v is exactly the shipping schema version.
func (v SchemaVersion) IsCurrent() bool { return v == Current }

var (
	ErrUnknownSchema      = errors.New("profile: cannot determine schema version")
	ErrIncompatibleSchema = errors.New("profile: incompatible schema major version")
)

// ParseSchemaVersion parses the canonical "wheel.profile/<major>[.<minor>][-<prerelease>]" form.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	rest, ok := strings.CutPrefix(s, schemaPrefix)
	if !ok {
		return SchemaVersion{}, fmt.Errorf("profile: %q missing %q prefix", s, schemaPrefix)
	}
	var pre string
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		pre, rest = rest[i+1:], rest[:i]
	}
	major, minor := rest, ""
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		major, minor = rest[:i], rest[i+1:]
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("profile: invalid major in %q: %w", s, err)
	}
	min := 0
	if minor != "" {
		min, err = strconv.Atoi(minor)
		if err != nil {
			return SchemaVersion{}, fmt.Errorf("profile: invalid minor in %q: %w", s, err)
		}
	}
	return SchemaVersion{Major: maj, Minor: min, PreRelease: pre}, nil
}

// legacyMarkerKeys are flat top-level keys that only appear in the
// pre-schema legacy profile format.
var legacyMarkerKeys = []string{"ffb_gain", "degrees_of_rotation"}

// Detect inspects raw JSON bytes and reports the profile's schema
// version without fully parsing it.
func Detect(data []byte) (SchemaVersion, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return SchemaVersion{}, fmt.Errorf("profile: parse: %w", err)
	}

	if raw, ok := doc["schema"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return SchemaVersion{}, fmt.Errorf("profile: schema field: %w", err)
		}
		return ParseSchemaVersion(s)
	}

	_, hasBase := doc["base"]
	if hasLegacyMarker(doc) || !hasBase {
		return SchemaVersion{Major: 0}, nil
	}
	return SchemaVersion{}, ErrUnknownSchema
}

func hasLegacyMarker(doc map[string]json.RawMessage) bool {
	for _, k := range legacyMarkerKeys {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

// NeedsMigration reports whether data's detected schema is not current.
func NeedsMigration(data []byte) (bool, error) {
	v, err := Detect(data)
	if err != nil {
		return false, err
	}
	return !v.IsCurrent(), nil
}
