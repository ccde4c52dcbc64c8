// Package tasks はタスクのCRUDと、所有者スコープ付きの検索機能を提供します。
package tasks

import (
	"strings"
	"time"

	"github.com/yourusername/task-forge/internal/apperr"
)

// Task はストレージに保存されるタスクレコードです。
// Owner は作成時に一度だけ設定され、以後変更されません。
type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidateDescription は説明文を検証し、前後の空白を除いた値を返します。
func ValidateDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return "", apperr.Invalid("description を入力してください。")
	}
	return trimmed, nil
}

func now() time.Time {
	return time.Now().UTC()
}
