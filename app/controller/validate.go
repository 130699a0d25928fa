package controller

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/vibast-solutions/ms-go-apikeys/app/dto/http"
	"github.com/vibast-solutions/ms-go-apikeys/app/middleware"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ValidateController struct {
	validator service.Validator
}

func NewValidateController(validator service.Validator) *ValidateController {
	return &ValidateController{validator: validator}
}

// Validate checks the x-api-key header first and falls back to the apiKey
// body field.
func (c *ValidateController) Validate(ctx echo.Context) error {
	candidate := strings.TrimSpace(ctx.Request().Header.Get(middleware.HeaderAPIKey))
	if candidate == "" {
		var req dto.ValidateKeyRequest
		// A missing or unparsable body just means no key was sent.
		_ = ctx.Bind(&req)
		candidate = req.APIKey
	}

	identity, err := c.validator.Validate(ctx.Request().Context(), candidate, middleware.RequestInfo(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredential):
			return ctx.JSON(http.StatusUnauthorized, dto.ValidateErrorResponse{Error: "API key is required"})
		case errors.Is(err, service.ErrInvalidCredential):
			return ctx.JSON(http.StatusUnauthorized, dto.ValidateErrorResponse{Error: "Invalid API key"})
		}
		logrus.WithError(err).Error("API key validation failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ValidateErrorResponse{Error: "Internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.ValidateKeyResponse{
		Valid:   true,
		Project: dto.NewProjectSummary(identity.Project),
		Key:     dto.NewKeySummary(identity.Key),
	})
}

// Identity echoes the caller resolved by RequireAPIKey.
func (c *ValidateController) Identity(ctx echo.Context) error {
	identity, ok := service.IdentityFromContext(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "API key is required"})
	}

	return ctx.JSON(http.StatusOK, dto.IdentityResponse{
		Project: dto.NewProjectSummary(identity.Project),
		Key:     dto.NewKeySummary(identity.Key),
		OwnerID: identity.OwnerID,
	})
}
