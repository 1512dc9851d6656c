package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobtracker"
)

var ErrNotFound = errors.New("secret not found")

type Name string

const (
	RedisPassword Name = "redis_password"
	NATSToken     Name = "nats_token"
)

var envKeys = map[Name]string{
	RedisPassword: "JOBTRACKER_REDIS_PASSWORD",
	NATSToken:     "JOBTRACKER_NATS_TOKEN",
}

// Parse maps a raw secret name onto one of the known names.
func Parse(raw string) (Name, bool) {
	n := Name(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := envKeys[n]
	return n, ok
}

func (n Name) account() string {
	return "jobtracker:" + string(n)
}

// EnvKey is the environment variable consulted when the keyring has no value.
func (n Name) EnvKey() string {
	return envKeys[n]
}

// Get reads the keyring first, then the environment.
func Get(n Name) (string, error) {
	if v, err := keyring.Get(KeyringService, n.account()); err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if key := n.EnvKey(); key != "" {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, nil
		}
	}
	return "", ErrNotFound
}

// Lookup is Get with absence reported as the empty string.
func Lookup(n Name) string {
	v, err := Get(n)
	if err != nil {
		return ""
	}
	return v
}

func Set(n Name, value string) error {
	if n.EnvKey() == "" {
		return errors.New("unknown secret name")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, n.account(), value)
}

func Delete(n Name) error {
	if n.EnvKey() == "" {
		return errors.New("unknown secret name")
	}
	err := keyring.Delete(KeyringService, n.account())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
