package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// EnsureUserConfig returns the path of config.yml inside dataDir, creating it
// first from defaultPath, or from Default when defaultPath is missing.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	src, err := os.Open(defaultPath)
	if errors.Is(err, os.ErrNotExist) {
		return userPath, SaveAtomic(userPath, Default())
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return userPath, nil
}

// LoadUserConfig bootstraps config.yml in dataDir, loads it, overlays the
// environment and normalizes the result. Validation errors are reported in
// the returned Validation, not as err.
func LoadUserConfig(dataDir, defaultPath string) (Config, string, Validation, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Config{}, "", Validation{}, err
	}
	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	if err != nil {
		return Config{}, "", Validation{}, err
	}
	cfg, err := Load(userPath)
	if err != nil {
		return Config{}, userPath, Validation{}, err
	}
	cfg, v := NormalizeAndValidate(ApplyEnv(cfg))
	return cfg, userPath, v, nil
}
