package badgerfx

import "testing"

func TestConfig_Build(t *testing.T) {
	opts := Config{Dir: "/var/lib/rolloutd"}.Build()
	if opts.Dir != "/var/lib/rolloutd" {
		t.Errorf("Expected data directory to carry over, got %q", opts.Dir)
	}
	if opts.InMemory {
		t.Error("Expected on-disk options by default")
	}

	opts = Config{InMemory: true}.Build()
	if !opts.InMemory {
		t.Error("Expected in-memory options")
	}
	if opts.Dir != "" || opts.ValueDir != "" {
		t.Errorf("Expected no directories for an in-memory store, got %q and %q", opts.Dir, opts.ValueDir)
	}
}
