package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反（メール、電話番号、冪等キーなど）
	ErrDuplicate = errors.New("duplicate")
)
