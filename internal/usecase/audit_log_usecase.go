package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
)

type AuditLogUsecase struct {
	audit repo.AuditLogRepository
}

func NewAuditLogUsecase(audit repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{audit: audit}
}

type ListAuditLogsInput struct {
	ResourceType string
	ResourceID   *int64
	ActorUserID  *int64
	Limit        int
	Offset       int
}

func (u *AuditLogUsecase) List(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit == 0 {
		in.Limit = 50
	}
	if in.Limit < 1 || in.Limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	f := repo.AuditLogFilter{
		ResourceID:  in.ResourceID,
		ActorUserID: in.ActorUserID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if rt := strings.TrimSpace(in.ResourceType); rt != "" {
		t := model.AuditResourceType(strings.ToLower(rt))
		if !t.IsValid() {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
		}
		f.ResourceType = &t
	}

	logs, err := u.audit.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}
