package profile

import (
	"encoding/json"
	"fmt"
)

// migrationStep transforms a decoded profile document from one major
// schema version to the next. Registered per source major version so
// Migrate can walk an arbitrary chain, even though today only one step
// (legacy -> 1) exists.
type migrationStep func(map[string]any) (map[string]any, error)

var migrations = map[int]migrationStep{
	0: migrateV0ToV1,
}

const maxMigrationSteps = 16

// Migrate walks the chain of registered migrations from data's detected
// schema version to Current, then validates the result. It never
// mutates the caller's slice; on any error the returned bytes are nil.
func Migrate(data []byte) ([]byte, error) {
	v, err := Detect(data)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}

	for steps := 0; !v.IsCurrent(); steps++ {
		if steps >= maxMigrationSteps {
			return nil, fmt.Errorf("profile: migration chain exceeded %d steps, likely cyclic", maxMigrationSteps)
		}
		step, ok := migrations[v.Major]
		if !ok {
			return nil, fmt.Errorf("profile: no migration registered from major %d", v.Major)
		}
		doc, err = step(doc)
		if err != nil {
			return nil, fmt.Errorf("profile: migration from major %d: %w", v.Major, err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("profile: re-encode after migration: %w", err)
		}
		v, err = Detect(out)
		if err != nil {
			return nil, fmt.Errorf("profile: migrated document has no detectable schema: %w", err)
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("profile: encode migrated profile: %w", err)
	}
	if err := validateMigrated(doc); err != nil {
		return nil, err
	}
	return out, nil
}

func validateMigrated(doc map[string]any) error {
	schema, _ := doc["schema"].(string)
	if schema != Current.String() {
		return fmt.Errorf("profile: migration validation failed: schema %q is not current %q", schema, Current)
	}
	if _, ok := doc["scope"]; !ok {
		return fmt.Errorf("profile: migration validation failed: missing scope")
	}
	if _, ok := doc["base"]; !ok {
		return fmt.Errorf("profile: migration validation failed: missing base")
	}
	return nil
}

// migrateV0ToV1 is the concrete legacy-flat -> wheel.profile/1
// transform: ffb_gain/degrees_of_rotation/torque_cap (with documented
// defaults) become a nested base object with a default filter chain.
func migrateV0ToV1(doc map[string]any) (map[string]any, error) {
	ffbGain := floatOr(doc, "ffb_gain", 0.7)
	dor := floatOr(doc, "degrees_of_rotation", 900)
	torqueCap := floatOr(doc, "torque_cap", 15.0)

	scope, hasScope := doc["scope"]
	if !hasScope {
		scope = nil
	}

	base := map[string]any{
		"ffbGain":     ffbGain,
		"dorDeg":      dor,
		"torqueCapNm": torqueCap,
		"filters": map[string]any{
			"reconstruction": 0.0,
			"friction":       0.0,
			"damper":         0.0,
			"inertia":        0.0,
			"notchFilters":   []any{},
			"slewRate":       1.0,
			"curvePoints":    []any{[]any{0.0, 0.0}, []any{1.0, 1.0}},
		},
	}

	return map[string]any{
		"schema": Current.String(),
		"scope":  scope,
		"base":   base,
	}, nil
}

func floatOr(doc map[string]any, key string, def float64) float64 {
	v, ok := doc[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return f
}
