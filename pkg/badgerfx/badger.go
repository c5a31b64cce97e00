package badgerfx

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// SeekEnd is appended to a key prefix to position a reverse iterator past
// every key under that prefix. Record ids are UUIDv7, so reverse iteration
// over a prefix yields newest records first.
const SeekEnd = byte(0xFF)

// New opens the store described by config, routing badger's own logging
// through the supplied logger.
func New(config Config, logger *zapLogger) (*badger.DB, error) {
	db, err := badger.Open(config.Build().WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return db, nil
}
