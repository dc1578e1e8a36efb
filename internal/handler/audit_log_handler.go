package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/usecase"
)

type AuditLogService interface {
	List(ctx context.Context, in usecase.ListAuditLogsInput) ([]model.AuditLog, error)
}

type AuditLogHandler struct {
	uc AuditLogService
}

func NewAuditLogHandler(uc AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) RegisterRoutes(api *echo.Group, guard ...echo.MiddlewareFunc) {
	api.GET("/audit-logs", h.list, guard...)
}

func (h *AuditLogHandler) list(c echo.Context) error {
	in := usecase.ListAuditLogsInput{ResourceType: c.QueryParam("resource_type")}

	var err error
	if in.ResourceID, err = queryInt64Ptr(c, "resource_id"); err != nil {
		return writeError(c, err)
	}
	if in.ActorUserID, err = queryInt64Ptr(c, "actor_user_id"); err != nil {
		return writeError(c, err)
	}
	if in.Limit, err = queryInt(c, "limit"); err != nil {
		return writeError(c, err)
	}
	if in.Offset, err = queryInt(c, "offset"); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
