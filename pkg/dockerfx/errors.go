package dockerfx

import "errors"

// ErrInvalidTLSConfig means the TLS material could not be loaded or parsed.
var ErrInvalidTLSConfig = errors.New("invalid TLS configuration")
