package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusNamesAndParams(t *testing.T) {
	tests := []struct {
		bus   Bus
		name  string
		param string
	}{
		{BusMaster, "master", "GlobalMasterVolume"},
		{BusMusic, "music", "GlobalMusicVolume"},
		{BusSFX, "sfx", "GlobalSFXVolume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.bus.String())
			assert.Equal(t, tt.param, tt.bus.Param())

			b, err := ParseBus(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.bus, b)

			b, err = ParseBus(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.bus, b)

			b, ok := BusForParam(tt.param)
			assert.True(t, ok)
			assert.Equal(t, tt.bus, b)
		})
	}
}

func TestParseBusCaseInsensitive(t *testing.T) {
	b, err := ParseBus("SFX")
	require.NoError(t, err)
	assert.Equal(t, BusSFX, b)
}

func TestInvalidBus(t *testing.T) {
	_, err := ParseBus("voice")
	assert.ErrorIs(t, err, ErrUnknownBus)

	b := Bus(9)
	assert.False(t, b.Valid())
	assert.Equal(t, "bus(9)", b.String())
	assert.Empty(t, b.Param())

	_, ok := BusForParam("GlobalVoiceVolume")
	assert.False(t, ok)
}
