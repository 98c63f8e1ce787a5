package identity_test

import (
	"path/filepath"
	"testing"

	"github.com/skyforge/telemetry-relay/pkg/file"
	"github.com/skyforge/telemetry-relay/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayInfo_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	fileClient := file.NewFileService()

	relayInfo := identity.NewRelayInfo(path, fileClient)
	require.NoError(t, relayInfo.SaveRelayID("relay-01"))

	reloaded := identity.NewRelayInfo(path, fileClient)
	require.NoError(t, reloaded.LoadRelayInfo())
	assert.Equal(t, "relay-01", reloaded.GetRelayID())
}

func TestRelayInfo_MissingFileIsEmptyIdentity(t *testing.T) {
	relayInfo := identity.NewRelayInfo(filepath.Join(t.TempDir(), "nope.json"), file.NewFileService())

	require.NoError(t, relayInfo.LoadRelayInfo())
	assert.Equal(t, "", relayInfo.GetRelayID())
}
