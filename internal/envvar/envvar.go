// Package envvar implements the configuration used by the different binaries,
// values come from environment variables and can be redirected to a secrets
// provider for sensitive material.
package envvar

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/taskhive/tasks-api/internal"
)

// Provider defines the external service resolving secret values.
type Provider interface {
	Get(key string) (string, error)
}

// Configuration reads values from the environment. A key suffixed with
// "_SECURE" indicates the provider field holding the real value.
type Configuration struct {
	provider Provider
}

// Load reads the env filename and loads it into the process environment.
func Load(filename string) error {
	if filename == "" {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "godotenv.Load")
	}

	return nil
}

// New ...
func New(provider Provider) *Configuration {
	return &Configuration{
		provider: provider,
	}
}

// Get returns the value for the received key; values marked as secure are
// resolved through the provider.
func (c *Configuration) Get(key string) (string, error) {
	res := os.Getenv(key)

	valSecret := os.Getenv(fmt.Sprintf("%s_SECURE", key))
	if valSecret != "" {
		valSecretRes, err := c.provider.Get(valSecret)
		if err != nil {
			return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "provider.Get")
		}

		res = valSecretRes
	}

	return res, nil
}
