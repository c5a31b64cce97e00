package badgerfx

import "github.com/dgraph-io/badger/v4"

type Config struct {
	// Path to the BadgerDB data directory
	Dir string

	// InMemory keeps all data in memory; used by tests and ephemeral runs.
	InMemory bool
}

func (c Config) Build() badger.Options {
	options := badger.DefaultOptions(c.Dir)
	if c.InMemory {
		options = options.WithInMemory(true).WithDir("").WithValueDir("")
	}

	return options
}
