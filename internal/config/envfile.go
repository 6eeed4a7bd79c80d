package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFileNames = []string{".env.local", ".env"}

// loadEnvFiles sets environment variables from .env.local and .env in the
// working directory and in the directory of the executable. Variables
// that are already set are kept.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	_ = loadEnvFilesIn(dirs...)
}

// loadEnvFilesIn loads the env files present in dirs. Earlier files take
// precedence since godotenv never overrides a variable that is set.
func loadEnvFilesIn(dirs ...string) error {
	var paths []string
	for _, dir := range dirs {
		for _, name := range envFileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				paths = append(paths, path)
			}
		}
	}
	if len(paths) == 0 {
		return nil
	}
	return godotenv.Load(paths...)
}
