package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectCurrentSchema(t *testing.T) {
	v, err := Detect([]byte(`{"schema":"wheel.profile/1","scope":null,"base":{}}`))
	require.NoError(t, err)
	require.Equal(t, Current, v)
	require.True(t, v.IsCurrent())
}

func TestDetectLegacyFlatMarkers(t *testing.T) {
	v, err := Detect([]byte(`{"ffb_gain":0.8,"degrees_of_rotation":900,"torque_cap":12.0}`))
	require.NoError(t, err)
	require.Equal(t, SchemaVersion{Major: 0}, v)
	require.False(t, v.IsCurrent())
}

func TestDetectEmptyDocumentIsLegacy(t *testing.T) {
	v, err := Detect([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, SchemaVersion{Major: 0}, v)
}

func TestDetectAmbiguousDocumentErrors(t *testing.T) {
	_, err := Detect([]byte(`{"base":{"ffbGain":0.7}}`))
	require.ErrorIs(t, err, ErrUnknownSchema)
}

func TestDetectRejectsMalformedJSON(t *testing.T) {
	_, err := Detect([]byte(`not json`))
	require.Error(t, err)
}

func TestParseSchemaVersionRoundTrip(t *testing.T) {
	cases := []SchemaVersion{
		{Major: 1},
		{Major: 1, Minor: 3},
		{Major: 0, Minor: 2, PreRelease: "beta.1"},
	}
	for _, c := range cases {
		v, err := ParseSchemaVersion(c.String())
		require.NoError(t, err)
		require.Equal(t, c, v)
	}
}

func TestNeedsMigrationTrueForLegacy(t *testing.T) {
	needs, err := NeedsMigration([]byte(`{"ffb_gain":0.8}`))
	require.NoError(t, err)
	require.True(t, needs)
}

func TestNeedsMigrationFalseForCurrent(t *testing.T) {
	needs, err := NeedsMigration([]byte(`{"schema":"wheel.profile/1","scope":null,"base":{}}`))
	require.NoError(t, err)
	require.False(t, needs)
}
