package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIncludesRunCommand(t *testing.T) {
	ctl := New()
	require.Equal(t, "meshchatd", ctl.Name)

	var found bool
	for _, cmd := range ctl.Commands {
		if cmd.Name == "run" {
			found = true
		}
	}
	require.True(t, found, "expected a \"run\" command")
}
