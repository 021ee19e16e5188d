package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMigrateLegacyProfile is scenario S4.
func TestMigrateLegacyProfile(t *testing.T) {
	input := []byte(`{"ffb_gain":0.8,"degrees_of_rotation":900,"torque_cap":12.0}`)
	out, err := Migrate(input)
	require.NoError(t, err)

	var doc struct {
		Schema string `json:"schema"`
		Base   struct {
			FFBGain     float64 `json:"ffbGain"`
			DorDeg      float64 `json:"dorDeg"`
			TorqueCapNm float64 `json:"torqueCapNm"`
			Filters     struct {
				SlewRate    float64     `json:"slewRate"`
				CurvePoints [][2]float64 `json:"curvePoints"`
			} `json:"filters"`
		} `json:"base"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Equal(t, "wheel.profile/1", doc.Schema)
	require.InDelta(t, 0.8, doc.Base.FFBGain, 1e-9)
	require.Equal(t, 900.0, doc.Base.DorDeg)
	require.Equal(t, 12.0, doc.Base.TorqueCapNm)
	require.Equal(t, 1.0, doc.Base.Filters.SlewRate)
	require.Equal(t, [][2]float64{{0, 0}, {1, 1}}, doc.Base.Filters.CurvePoints)
}

func TestMigrateAppliesDocumentedDefaults(t *testing.T) {
	out, err := Migrate([]byte(`{}`))
	require.NoError(t, err)

	var doc struct {
		Base struct {
			FFBGain     float64 `json:"ffbGain"`
			DorDeg      float64 `json:"dorDeg"`
			TorqueCapNm float64 `json:"torqueCapNm"`
		} `json:"base"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Equal(t, 0.7, doc.Base.FFBGain)
	require.Equal(t, 900.0, doc.Base.DorDeg)
	require.Equal(t, 15.0, doc.Base.TorqueCapNm)
}

// TestMigrationRoundTrip is property 9.
func TestMigrationRoundTrip(t *testing.T) {
	legacy := []byte(`{"ffb_gain":0.55,"degrees_of_rotation":540,"torque_cap":8.5}`)
	out, err := Migrate(legacy)
	require.NoError(t, err)

	v, err := Detect(out)
	require.NoError(t, err)
	require.True(t, v.IsCurrent())

	var doc struct {
		Base struct {
			FFBGain     float64 `json:"ffbGain"`
			DorDeg      float64 `json:"dorDeg"`
			TorqueCapNm float64 `json:"torqueCapNm"`
		} `json:"base"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.InDelta(t, 0.55, doc.Base.FFBGain, 1e-3)
	require.InDelta(t, 540, doc.Base.DorDeg, 1e-3)
	require.InDelta(t, 8.5, doc.Base.TorqueCapNm, 1e-3)
}

func TestMigrateRejectsUnregisteredMajor(t *testing.T) {
	_, err := Migrate([]byte(`{"schema":"wheel.profile/7"}`))
	require.Error(t, err)
}

// TestMigrateValidatesResultEvenIfTransformSucceeded covers the
// "schema validation failure after migration" error-handling rule: a
// transform that runs without error but produces an invalid document
// must still fail Migrate.
func TestMigrateValidatesResultEvenIfTransformSucceeded(t *testing.T) {
	original := migrations[0]
	migrations[0] = func(map[string]any) (map[string]any, error) {
		return map[string]any{"schema": Current.String()}, nil // missing scope/base
	}
	defer func() { migrations[0] = original }()

	_, err := Migrate([]byte(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation failed")
}
