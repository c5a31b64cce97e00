package dockerfx

import (
	"time"
)

// Config describes how to reach the Docker daemon that hosts the managed
// service units. Anything left empty falls back to the daemon's standard
// environment negotiation.
type Config struct {
	// Host is the daemon endpoint, a unix socket path or a tcp address.
	Host string

	// APIVersion pins the API version; empty negotiates with the daemon.
	APIVersion string

	// Timeout bounds every API request. Zero means DefaultConfig's value.
	Timeout time.Duration

	// TLSEnabled switches the connection to mutual TLS using TLSConfig.
	TLSEnabled bool

	TLSConfig TLSConfig
}

// TLSConfig names the PEM material for a TLS-secured daemon connection.
type TLSConfig struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

func DefaultConfig() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		Timeout: 30 * time.Second,
	}
}
