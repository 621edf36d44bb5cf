package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "expression", LevelExpression.String())
	assert.Equal(t, "lipsync", LevelLipsync.String())
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestParseLevel_RoundTrip(t *testing.T) {
	for _, l := range AllLevels() {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("hologram")
	assert.Error(t, err)
}

func TestAllLevels_OrderedAndValid(t *testing.T) {
	levels := AllLevels()
	require.Len(t, levels, NumLevels)
	for i, l := range levels {
		assert.True(t, l.Valid())
		assert.Equal(t, i+1, int(l))
	}
	assert.False(t, Level(0).Valid())
	assert.False(t, Level(7).Valid())
}

func TestVideoFeatures_ForLevel(t *testing.T) {
	vf := &VideoFeatures{
		VideoID: "clip-01",
		Records: map[Level][]FrameFeatureRecord{
			LevelBlink: {{FrameIndex: 0, Level: LevelBlink, Metrics: map[string]float64{"EAR": 0.3}}},
		},
	}
	assert.Len(t, vf.ForLevel(LevelBlink), 1)
	assert.Empty(t, vf.ForLevel(LevelTexture))

	var empty VideoFeatures
	assert.Nil(t, empty.ForLevel(LevelBlink))
}

func TestLevelResult_Inconclusive(t *testing.T) {
	assert.True(t, LevelResult{Support: 0}.Inconclusive())
	assert.False(t, LevelResult{Support: 5}.Inconclusive())
}
