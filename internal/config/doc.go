// Package config provides configuration types and loading for the relay
// services.
//
// One Config drives all three roles. The role selects which sections are
// read: backend uses only service, server and observability; middleware
// adds the backend section and optional server TLS; edge adds the
// middleware section with its mutual-TLS client stores.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("configs/middleware.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Values may reference the environment with ${VAR} or ${VAR:-default};
// a literal dollar sign is written as $$. Passwords may also be given as
// vault:<mount>/<path>#<key> and are resolved by ResolveSecrets.
package config
