// Package validation decorates fiber handlers with request body parsing
// and struct validation.
package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rolloutd/rolloutd/internal/deployments"
)

// DecorateWithBodyEx parses and validates the request body before calling
// the wrapped handler. Parse and validation failures short-circuit with a
// 400 response.
func DecorateWithBodyEx[T any](v *validator.Validate, handler func(*fiber.Ctx, *T) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body T

		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := v.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return handler(c, &body)
	}
}

// RegisterIdentifier adds the `identifier` rule used for the opaque
// mutation and specification id fields.
func RegisterIdentifier(v *validator.Validate) error {
	return v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return deployments.ValidIdentifier(fl.Field().String())
	})
}
