// Package vault implements the envvar.Provider backed by HashiCorp Vault's
// KV v2 secrets engine.
package vault

import (
	"github.com/hashicorp/vault/api"
	"github.com/taskhive/tasks-api/internal"
)

// Provider ...
type Provider struct {
	client *api.Client
	path   string
}

// New instantiates a Vault client using the received token and address, the
// path indicates the secret holding all configuration fields.
func New(token, addr, path string) (*Provider, error) {
	config := api.DefaultConfig()
	config.Address = addr

	client, err := api.NewClient(config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "api.NewClient")
	}

	client.SetToken(token)

	return &Provider{
		client: client,
		path:   path,
	}, nil
}

// Get reads the field named key from the configured secret path.
func (p *Provider) Get(key string) (string, error) {
	secret, err := p.client.Logical().Read(p.path)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Logical.Read")
	}

	if secret == nil || secret.Data == nil {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "secret not found: %s", p.path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	res, ok := data[key].(string)
	if !ok {
		return "", internal.NewErrorf(internal.ErrorCodeNotFound, "secret field not found: %s", key)
	}

	return res, nil
}
