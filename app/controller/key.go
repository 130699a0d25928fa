package controller

import (
	"errors"
	"net/http"
	"strconv"

	dto "github.com/vibast-solutions/ms-go-apikeys/app/dto/http"
	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const maxUsageLimit = 1000

// KeyController serves the owner-facing key management routes. Every
// handler expects RequireAuth to have stored the requester in the context.
type KeyController struct {
	lifecycle service.LifecycleService
}

func NewKeyController(lifecycle service.LifecycleService) *KeyController {
	return &KeyController{lifecycle: lifecycle}
}

func (c *KeyController) Generate(ctx echo.Context) error {
	requesterID, ok := service.RequesterFromContext(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	var req dto.GenerateKeyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.ProjectID == 0 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Project ID is required"})
	}

	env, err := credential.ParseEnvironment(req.Prefix)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "prefix must be live or test"})
	}

	issued, err := c.lifecycle.Issue(ctx.Request().Context(), req.ProjectID, requesterID, env)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Project not found"})
		case errors.Is(err, service.ErrInvalidEnvironment):
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "prefix must be live or test"})
		}
		logrus.WithError(err).WithField("project_id", req.ProjectID).Error("Failed to generate API key")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Server error generating key"})
	}

	return ctx.JSON(http.StatusCreated, dto.GenerateKeyResponse{
		ID:        issued.Key.ID,
		Key:       issued.Secret,
		Prefix:    string(issued.Key.Environment),
		CreatedAt: issued.Key.CreatedAt,
	})
}

func (c *KeyController) List(ctx echo.Context) error {
	requesterID, ok := service.RequesterFromContext(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	projectID, err := strconv.ParseUint(ctx.QueryParam("projectId"), 10, 64)
	if err != nil || projectID == 0 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Project ID is required"})
	}

	keys, err := c.lifecycle.List(ctx.Request().Context(), projectID, requesterID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Project not found"})
		}
		logrus.WithError(err).WithField("project_id", projectID).Error("Failed to list API keys")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Server error fetching keys"})
	}

	return ctx.JSON(http.StatusOK, dto.NewAPIKeyListResponse(keys))
}

func (c *KeyController) Revoke(ctx echo.Context) error {
	requesterID, ok := service.RequesterFromContext(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	keyID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "API key not found"})
	}

	if err = c.lifecycle.Revoke(ctx.Request().Context(), keyID, requesterID); err != nil {
		if status, message, known := keyErrorResponse(err); known {
			return ctx.JSON(status, dto.ErrorResponse{Error: message})
		}
		logrus.WithError(err).WithField("key_id", keyID).Error("Failed to revoke API key")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Server error revoking key"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "API key revoked successfully"})
}

func (c *KeyController) Usage(ctx echo.Context) error {
	requesterID, ok := service.RequesterFromContext(ctx.Request().Context())
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	}

	keyID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "API key not found"})
	}

	limit := 0
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxUsageLimit {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be between 1 and 1000"})
		}
	}

	events, err := c.lifecycle.Usage(ctx.Request().Context(), keyID, requesterID, limit)
	if err != nil {
		if status, message, known := keyErrorResponse(err); known {
			return ctx.JSON(status, dto.ErrorResponse{Error: message})
		}
		logrus.WithError(err).WithField("key_id", keyID).Error("Failed to list usage events")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Server error fetching usage"})
	}

	return ctx.JSON(http.StatusOK, dto.NewUsageListResponse(events))
}

func keyErrorResponse(err error) (int, string, bool) {
	switch {
	case errors.Is(err, service.ErrKeyNotFound):
		return http.StatusNotFound, "API key not found", true
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, "Unauthorized", true
	case errors.Is(err, service.ErrKeyAlreadyRevoked):
		return http.StatusConflict, "API key already revoked", true
	}
	return 0, "", false
}
