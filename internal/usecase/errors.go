package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
)

// HTTPError はhandlerがそのままレスポンスにするエラー。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// repoエラーを HTTPError に寄せる。既に HTTPError ならそのまま返す。
func mapRepoError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, notFoundMsg)
	case errors.Is(err, repo.ErrDuplicate):
		return NewHTTPError(http.StatusConflict, "already exists")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

// Actor は操作したユーザー。UserID 0 は匿名。
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAnonymous() bool { return a.UserID <= 0 }

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// 監査ログ用のJSON文字列。失敗しても空文字にする。
func auditJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func normalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return page, limit, nil
}
