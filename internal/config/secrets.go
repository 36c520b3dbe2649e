package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretPrefix marks a value to be read from Vault.
const SecretPrefix = "vault:"

// SecretReader reads one key of a KV secret.
type SecretReader interface {
	ReadSecret(ctx context.Context, mount, path, key string) (string, error)
}

// SecretRef is a parsed vault:<mount>/<path>#<key> reference.
type SecretRef struct {
	Mount string
	Path  string
	Key   string
}

// IsSecretRef reports whether v is a vault: reference.
func IsSecretRef(v string) bool {
	return strings.HasPrefix(v, SecretPrefix)
}

// ParseSecretRef parses a vault: reference.
func ParseSecretRef(v string) (SecretRef, error) {
	rest, ok := strings.CutPrefix(v, SecretPrefix)
	if !ok {
		return SecretRef{}, fmt.Errorf("secret reference must start with %q", SecretPrefix)
	}
	location, key, ok := strings.Cut(rest, "#")
	if !ok || key == "" {
		return SecretRef{}, fmt.Errorf("secret reference %q has no #key", v)
	}
	mount, path, ok := strings.Cut(strings.Trim(location, "/"), "/")
	if !ok || mount == "" || path == "" {
		return SecretRef{}, fmt.Errorf("secret reference %q must be vault:<mount>/<path>#<key>", v)
	}
	return SecretRef{Mount: mount, Path: path, Key: key}, nil
}

// HasSecretRefs reports whether any secret field holds a vault: reference.
func (c *Config) HasSecretRefs() bool {
	for _, field := range c.secretFields() {
		if IsSecretRef(*field.value) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every vault: reference in password fields with the
// value read through reader.
func (c *Config) ResolveSecrets(ctx context.Context, reader SecretReader) error {
	for _, field := range c.secretFields() {
		if !IsSecretRef(*field.value) {
			continue
		}
		ref, err := ParseSecretRef(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.path, err)
		}
		value, err := reader.ReadSecret(ctx, ref.Mount, ref.Path, ref.Key)
		if err != nil {
			return fmt.Errorf("%s: %w", field.path, err)
		}
		*field.value = value
	}
	return nil
}

type secretField struct {
	path  string
	value *string
}

func (c *Config) secretFields() []secretField {
	var fields []secretField
	addStore := func(path string, s *StoreConfig) {
		if s == nil {
			return
		}
		fields = append(fields,
			secretField{path + ".password", &s.Password},
			secretField{path + ".keyPassword", &s.KeyPassword},
		)
	}

	if t := c.Server.TLS; t != nil {
		addStore("server.tls.keyStore", &t.KeyStore)
		addStore("server.tls.trustStore", t.TrustStore)
	}
	addStore("middleware.mtls.keyStore", &c.Middleware.MTLS.KeyStore)
	addStore("middleware.mtls.trustStore", &c.Middleware.MTLS.TrustStore)
	return fields
}
