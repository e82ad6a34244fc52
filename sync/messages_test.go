package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullReplace(t *testing.T) {
	data := []byte(`{"nodes":[{"id":"a","name":"a","type":"spec"}],"edges":[]}`)
	f, err := decodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, frameFullReplace, f.kind)
	require.Len(t, f.nodes, 1)
	assert.Empty(t, f.edges)
}

func TestDecodePartialPatchStatusKey(t *testing.T) {
	f, err := decodeFrame([]byte(`{"node":"wf-1","status":"failed"}`))
	require.NoError(t, err)
	assert.Equal(t, framePartialPatch, f.kind)
	assert.Equal(t, "wf-1", f.nodeID)
	assert.Equal(t, "failed", f.status)
}

func TestDecodePartialPatchStateFallback(t *testing.T) {
	f, err := decodeFrame([]byte(`{"node":"res-1","state":"provisioning"}`))
	require.NoError(t, err)
	assert.Equal(t, "provisioning", f.status)
}

func TestDecodeStatusPreferredOverState(t *testing.T) {
	f, err := decodeFrame([]byte(`{"node":"res-1","status":"failed","state":"running"}`))
	require.NoError(t, err)
	assert.Equal(t, "failed", f.status)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := decodeFrame([]byte(`{"node":`))
	require.Error(t, err)
}

func TestDecodeUnknownShape(t *testing.T) {
	_, err := decodeFrame([]byte(`{"hello":"world"}`))
	require.Error(t, err)
}

func TestDecodePatchWithoutStatus(t *testing.T) {
	_, err := decodeFrame([]byte(`{"node":"x"}`))
	require.Error(t, err)
}

func TestDecodeEmptyFullReplace(t *testing.T) {
	// An empty graph is a legitimate replacement as long as both lists
	// are present.
	f, err := decodeFrame([]byte(`{"nodes":[],"edges":[]}`))
	require.NoError(t, err)
	assert.Equal(t, frameFullReplace, f.kind)
	assert.Empty(t, f.nodes)
}
