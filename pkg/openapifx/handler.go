package openapifx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Config controls how the OpenAPI document is served.
type Config struct {
	// Enabled toggles the docs endpoint entirely.
	Enabled bool

	// PublicHost overrides the host advertised in the document.
	PublicHost string

	// PublicPath overrides the base path advertised in the document.
	PublicPath string
}

// Handler serves the generated OpenAPI document and its UI.
type Handler struct {
	config Config
	logger *zap.Logger
}

func New(config Config, spec *swag.Spec, logger *zap.Logger) *Handler {
	if config.PublicHost != "" {
		spec.Host = config.PublicHost
	}
	if config.PublicPath != "" {
		spec.BasePath = config.PublicPath
	}

	return &Handler{
		config: config,
		logger: logger,
	}
}

// Register mounts the swagger UI under the given router.
func (h *Handler) Register(r fiber.Router) {
	if !h.config.Enabled {
		h.logger.Debug("openapi endpoint disabled")
		return
	}

	r.Get("/*", swagger.HandlerDefault)
}
