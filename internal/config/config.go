// Package config holds the server's run-time configuration, built from
// the command flags alone, and loads an optional .env file into the
// process environment; the .env values do not feed into Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// Config is the resolved configuration for the `run` command.
type Config struct {
	Host         string
	Port         int
	Reload       bool
	NodepackRoot string
}

// LoadEnvFile loads a .env file at path into the process environment if
// present. A missing file is not an error: godotenv.Load reports it as
// one, and that not-exist error is filtered out here, so only a failure
// on an existing file is returned.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}
