package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCommandsReturnsRunCommand(t *testing.T) {
	cmds := NewCommands()
	require.Len(t, cmds, 1)
	require.Equal(t, "run", cmds[0].Name)
	require.NotNil(t, cmds[0].Action)
	require.NotEmpty(t, cmds[0].Flags)
}
