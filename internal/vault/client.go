package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/avarelay/internal/observability"
)

// DefaultTimeout bounds every Vault request.
const DefaultTimeout = 10 * time.Second

// Config configures the Vault client. Empty fields fall back to the
// VAULT_ADDR, VAULT_TOKEN and VAULT_NAMESPACE environment variables.
type Config struct {
	Address   string
	Token     string
	Namespace string
	Timeout   time.Duration
}

// Client reads KV secrets.
type Client struct {
	api    *vaultapi.Client
	logger observability.Logger
}

// New creates a client. It does not contact Vault.
func New(cfg Config, logger observability.Logger) (*Client, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, newVaultError("configure", "", apiConfig.Error)
	}
	if cfg.Address != "" {
		apiConfig.Address = cfg.Address
	}
	apiConfig.Timeout = cfg.Timeout
	if apiConfig.Timeout <= 0 {
		apiConfig.Timeout = DefaultTimeout
	}
	// Reads are issued once at startup; the caller decides what a failure means.
	apiConfig.MaxRetries = 0

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, newVaultError("configure", "", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	return &Client{api: api, logger: logger}, nil
}

// Read returns the data of the secret at mount/path. KV v2 is tried first;
// a mount without the data/ wrapper is read as KV v1.
func (c *Client) Read(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if mount == "" || path == "" {
		return nil, newVaultError("kv_read", mount+"/"+path, ErrInvalidPath)
	}

	fullPath := fmt.Sprintf("%s/data/%s", mount, path)
	secret, err := c.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, newVaultError("kv_read", fullPath, err)
	}
	if secret == nil {
		// Not a v2 mount, or nothing there; try the v1 layout.
		fullPath = fmt.Sprintf("%s/%s", mount, path)
		secret, err = c.api.Logical().ReadWithContext(ctx, fullPath)
		if err != nil {
			return nil, newVaultError("kv_read", fullPath, err)
		}
	}
	if secret == nil || secret.Data == nil {
		return nil, newVaultError("kv_read", fullPath, ErrSecretNotFound)
	}

	// KV v2 wraps data in a "data" key; deleted versions have data: null.
	dataValue, hasData := secret.Data["data"]
	if hasData && dataValue == nil {
		return nil, newVaultError("kv_read", fullPath, ErrSecretNotFound)
	}
	data, ok := dataValue.(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	c.logger.Debug("secret read", observability.String("path", fullPath))
	return data, nil
}

// ReadSecret returns the string value of key in the secret at mount/path.
func (c *Client) ReadSecret(ctx context.Context, mount, path, key string) (string, error) {
	data, err := c.Read(ctx, mount, path)
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok || v == nil {
		return "", newVaultError("kv_read", mount+"/"+path+"#"+key, ErrKeyNotFound)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
