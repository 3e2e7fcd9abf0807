package ovs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"Micronet/pkg/commander/commandertest"
	"Micronet/pkg/config"
	"Micronet/pkg/node"
)

var _ node.Switch = (*Switch)(nil)

func TestNewSwitch_NameTooLong(t *testing.T) {
	r := commandertest.NewRunner()
	env := node.NewEnv(config.Default(), r)

	_, err := NewSwitch(context.Background(), "ovs-bridge-name-too-long", env, false)
	require.ErrorIs(t, err, node.ErrNameTooLong)
	require.Empty(t, r.Lines())
}
