package dockerfx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewClient_PlainConnection(t *testing.T) {
	// Construction never dials the daemon, so a plain config must succeed
	// without one running.
	cli, err := NewClient(Config{Host: "unix:///var/run/docker.sock", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if cli == nil {
		t.Fatal("Expected a client")
	}
}

func TestNewClient_TLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not pem material"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cases := []struct {
		name string
		tls  TLSConfig
	}{
		{"missing CA file", TLSConfig{CAFile: filepath.Join(dir, "absent.pem")}},
		{"unparseable CA file", TLSConfig{CAFile: garbage}},
		{"broken key pair", TLSConfig{CertFile: garbage, KeyFile: garbage}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewClient(Config{TLSEnabled: true, TLSConfig: c.tls})
			if !errors.Is(err, ErrInvalidTLSConfig) {
				t.Errorf("Expected ErrInvalidTLSConfig, got %v", err)
			}
		})
	}
}
