package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env files in the working directory. Variables that are
// already set are not overridden.
func loadEnvFiles() error {
	for _, name := range envFiles {
		err := godotenv.Load(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", name)
	}
	return nil
}
