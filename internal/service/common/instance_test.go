//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process for tests.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// TestFindOtherInstance skips the current process and matches by executable name.
func TestFindOtherInstance(t *testing.T) {
	t.Parallel()

	processList := []ps.Process{
		fakeProcess{pid: 10, name: "timer-settingsd"},
		fakeProcess{pid: 11, name: "bash"},
	}

	_, found := findOtherInstance(processList, 10, "timer-settingsd")
	require.False(t, found)

	processList = append(processList, fakeProcess{pid: 12, name: "timer-settingsd"})

	other, found := findOtherInstance(processList, 10, "timer-settingsd")
	require.True(t, found)
	require.Equal(t, 12, other.Pid())
}

// TestEnsureSingleInstance passes for the test binary, which runs once.
func TestEnsureSingleInstance(t *testing.T) {
	t.Parallel()

	require.NoError(t, EnsureSingleInstance())
}
