package chrome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingKiller struct {
	kills int
}

func (k *countingKiller) Kill() { k.kills++ }

func TestConnectOrKillKillsLaunchedBrowserOnFailure(t *testing.T) {
	k := &countingKiller{}
	dialErr := errors.New("websocket: bad handshake")

	err := connectOrKill(k, func() error { return dialErr })
	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, 1, k.kills)
}

func TestConnectOrKillLeavesBrowserRunningOnSuccess(t *testing.T) {
	k := &countingKiller{}

	require.NoError(t, connectOrKill(k, func() error { return nil }))
	assert.Zero(t, k.kills)
}
