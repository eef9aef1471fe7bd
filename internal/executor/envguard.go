package executor

import (
	"os"
	"sync"
)

// envGuard serializes the process-wide environment mutation an
// execution's env_vars map performs. Every execution that carries
// env_vars must hold this lock for the full span from apply to restore;
// an execution with no env_vars never touches it, so concurrent
// env-var-free executions are never serialized against each other.
var envGuard sync.Mutex

// applyEnv sets the given environment variables, returning a restore
// function that undoes exactly this change (re-setting a key that
// previously existed, unsetting one that did not). The caller must hold
// envGuard for the entire span between applyEnv and calling restore.
func applyEnv(vars map[string]string) (restore func()) {
	if len(vars) == 0 {
		return func() {}
	}

	type prior struct {
		value  string
		wasSet bool
	}
	saved := make(map[string]prior, len(vars))

	for key, value := range vars {
		old, wasSet := os.LookupEnv(key)
		saved[key] = prior{value: old, wasSet: wasSet}
		os.Setenv(key, value)
	}

	return func() {
		for key, p := range saved {
			if p.wasSet {
				os.Setenv(key, p.value)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}
