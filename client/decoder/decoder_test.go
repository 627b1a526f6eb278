package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSelectsAvailableBackend(t *testing.T) {
	sw := NewSoftwareBackend(640, 480)
	d, err := NewDecoder([]Backend{BackendHardware, BackendSoftware}, map[Backend]backendImpl{BackendSoftware: sw}, 4)
	require.NoError(t, err)
	assert.Equal(t, BackendSoftware, d.ActiveBackend())
}

func TestDecodeProducesFrameWithKeyframeFlag(t *testing.T) {
	sw := NewSoftwareBackend(640, 480)
	d, err := NewDecoder([]Backend{BackendSoftware}, map[Backend]backendImpl{BackendSoftware: sw}, 4)
	require.NoError(t, err)

	frame, ok, err := d.Decode([]byte{5, 0xAA})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, frame.Keyframe)
	assert.Equal(t, 640, frame.Width)
}

func TestDecodeDropsUnderMemoryPressure(t *testing.T) {
	sw := NewSoftwareBackend(640, 480)
	d, err := NewDecoder([]Backend{BackendSoftware}, map[Backend]backendImpl{BackendSoftware: sw}, 1)
	require.NoError(t, err)

	_, ok, err := d.Decode([]byte{5})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = d.Decode([]byte{1})
	require.NoError(t, err)
	assert.False(t, ok, "must drop when the queue is at capacity")

	d.Release()
	_, ok, err = d.Decode([]byte{1})
	require.NoError(t, err)
	assert.True(t, ok, "must accept again after a slot frees up")
}

func TestNewDecoderFailsWhenNoBackendAvailable(t *testing.T) {
	_, err := NewDecoder([]Backend{BackendHardware}, map[Backend]backendImpl{}, 4)
	assert.Error(t, err)
}
