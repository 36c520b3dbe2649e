// Package vault reads secrets from the HashiCorp Vault KV engine. It serves
// the vault: references in configuration files, such as key store passwords.
package vault
