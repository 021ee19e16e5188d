package profile

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurvePoint is one (input, output) sample of a torque curve.
type CurvePoint struct {
	X float64
	Y float64
}

func (p *CurvePoint) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

func (p CurvePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// Filters is the FFB filter chain nested under base.
type Filters struct {
	Reconstruction float64      `json:"reconstruction"`
	Friction       float64      `json:"friction"`
	Damper         float64      `json:"damper"`
	Inertia        float64      `json:"inertia"`
	NotchFilters   []float64    `json:"notchFilters"`
	SlewRate       float64      `json:"slewRate"`
	CurvePoints    []CurvePoint `json:"curvePoints"`
}

// Base is the required "base" object of a current-schema profile.
type Base struct {
	FFBGain     float64 `json:"ffbGain"`
	DorDeg      float64 `json:"dorDeg"`
	TorqueCapNm float64 `json:"torqueCapNm"`
	Filters     Filters `json:"filters"`
}

// Profile is a parsed, current-or-minor-drift wheel profile.
type Profile struct {
	Schema SchemaVersion
	Scope  json.RawMessage
	Base   Base
}

var (
	ErrMissingSchema = errors.New("profile: missing required field schema")
	ErrMissingScope  = errors.New("profile: missing required field scope")
	ErrMissingBase   = errors.New("profile: missing required field base")
)

// ParseProfile parses raw JSON into a Profile. It accepts any minor
// version drift within Current.Major (backward/forward compatible on
// minor) and rejects a different major with ErrIncompatibleSchema.
func ParseProfile(data []byte) (*Profile, error) {
	var doc struct {
		Schema string          `json:"schema"`
		Scope  json.RawMessage `json:"scope"`
		Base   *Base           `json:"base"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	if doc.Schema == "" {
		return nil, ErrMissingSchema
	}
	v, err := ParseSchemaVersion(doc.Schema)
	if err != nil {
		return nil, err
	}
	if v.Major != Current.Major {
		return nil, fmt.Errorf("%w: profile is %s, parser accepts major %d", ErrIncompatibleSchema, v, Current.Major)
	}
	if doc.Scope == nil {
		return nil, ErrMissingScope
	}
	if doc.Base == nil {
		return nil, ErrMissingBase
	}
	return &Profile{Schema: v, Scope: doc.Scope, Base: *doc.Base}, nil
}

// ParseOrMigrate tries a direct parse first; on an incompatible major
// version or a missing schema field (the legacy format) it migrates the
// data to Current and parses that instead. Any other parse error
// (malformed JSON, missing scope or base) is returned directly without
// attempting a migration.
func ParseOrMigrate(data []byte) (*Profile, error) {
	p, err := ParseProfile(data)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrIncompatibleSchema) && !errors.Is(err, ErrMissingSchema) {
		return nil, err
	}
	migrated, migErr := Migrate(data)
	if migErr != nil {
		return nil, fmt.Errorf("profile: parse failed (%v) and migration failed: %w", err, migErr)
	}
	return ParseProfile(migrated)
}
