package env

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file without touching the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	return vars, nil
}

// LoadAndExportDotEnv exports the variables of the given files to the process environment.
// Variables already set are kept. Missing files are skipped so `.env` stays optional.
func LoadAndExportDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("cannot load env file %s: %w", p, err)
		}
	}
	return nil
}
