// Package config loads and validates runtime configuration for spongycord
// hosts.
//
// Configuration is read from `config/config.yaml` (or `./config.yaml`) and can
// be overridden via SC_-prefixed environment variables, e.g.
// SC_CHANNEL_NAME or SC_PENDING_MAX_AGE.
package config
