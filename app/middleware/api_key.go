package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"
)

const HeaderAPIKey = "X-API-Key"

type APIKeyMiddleware struct {
	validator service.Validator
}

func NewAPIKeyMiddleware(validator service.Validator) *APIKeyMiddleware {
	return &APIKeyMiddleware{validator: validator}
}

// RequireAPIKey authenticates the x-api-key header and stores the resolved
// identity in the request context for downstream handlers.
func (m *APIKeyMiddleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Let CORS preflight pass.
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}
		if !entity.IsUsageMethod(c.Request().Method) {
			return c.JSON(http.StatusMethodNotAllowed, map[string]string{
				"error": "Method not allowed",
			})
		}

		apiKey := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
		identity, err := m.validator.Validate(c.Request().Context(), apiKey, RequestInfo(c))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMissingCredential):
				logrus.Debug("Missing x-api-key header")
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "API key is required",
				})
			case errors.Is(err, service.ErrInvalidCredential):
				logrus.Debug("Invalid x-api-key header")
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Invalid API key",
				})
			}
			logrus.WithError(err).Error("API key validation failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Internal server error",
			})
		}

		req := c.Request()
		c.SetRequest(req.WithContext(service.ContextWithIdentity(req.Context(), identity)))
		return next(c)
	}
}

// RequestInfo describes the inbound HTTP request for usage accounting. The
// source address comes from the Echo instance's IPExtractor.
func RequestInfo(c echo.Context) service.RequestInfo {
	return service.RequestInfo{
		Path:          c.Request().URL.Path,
		SourceAddress: c.RealIP(),
		Method:        c.Request().Method,
	}
}
