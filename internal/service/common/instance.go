//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingleInstance fails when another process with the executable name of
// the current one exists. The settings document has a single writer daemon.
func EnsureSingleInstance() error {
	selfPID := os.Getpid()

	self, err := ps.FindProcess(selfPID)
	if err != nil {
		return fmt.Errorf("inspect current process: %w", err)
	}

	if self == nil {
		// Process listing is unavailable, nothing to compare against.
		return nil
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if other, found := findOtherInstance(processList, selfPID, self.Executable()); found {
		return fmt.Errorf("%s (pid %d): %w", other.Executable(), other.Pid(), ErrAlreadyRunning)
	}

	return nil
}

// findOtherInstance returns the first process other than selfPID running name.
func findOtherInstance(processList []ps.Process, selfPID int, name string) (ps.Process, bool) {
	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if process.Executable() == name {
			return process, true
		}
	}

	return nil, false
}
