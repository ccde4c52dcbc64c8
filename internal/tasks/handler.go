package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/task-forge/internal/apperr"
	"github.com/yourusername/task-forge/internal/users"
)

// Store はタスクレコードの永続化を提供します。
// すべての読み書きは所有者IDでスコープされます。
type Store interface {
	Create(ctx context.Context, task *Task) error
	FindForOwner(ctx context.Context, ownerID, taskID string) (*Task, error)
	Update(ctx context.Context, ownerID, taskID string, mutate func(*Task) error) (*Task, error)
	Delete(ctx context.Context, ownerID, taskID string) (*Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Task, error)
}

// Handler はタスク関連エンドポイントのハンドラー群です。
type Handler struct {
	store Store
}

// NewHandler は Handler を作成します。
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// 更新可能なタスク項目の許可リスト。ここに無いキーはリクエストごと拒否します。
var updatableTaskFields = map[string]bool{
	"description": true,
	"completed":   true,
}

type createRequest struct {
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

// Create は POST /tasks のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	user := users.CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	var req createRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		apperr.RespondWithError(c, apperr.Invalid("description（と任意で completed）をJSONで送ってください。"))
		return
	}

	description, err := ValidateDescription(req.Description)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	task := &Task{
		ID:          uuid.NewString(),
		Description: description,
		Owner:       user.ID,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := h.store.Create(c.Request.Context(), task); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// List は GET /tasks のハンドラーです。
// completed / sortBy / limit / skip のクエリパラメータを受け付けます。
func (h *Handler) List(c *gin.Context) {
	user := users.CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	items, err := h.store.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	criteria := ParseCriteria(c.Request.URL.Query())
	c.JSON(http.StatusOK, criteria.Apply(items))
}

// Get は GET /tasks/:id のハンドラーです。
// 他ユーザー所有のタスクは存在しないタスクと同じ404になります。
func (h *Handler) Get(c *gin.Context) {
	user := users.CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	task, err := h.store.FindForOwner(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apperr.RespondWithError(c, apperr.NotFound())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Patch は PATCH /tasks/:id のハンドラーです。
// 許可リスト外のキーが1つでもあればリクエスト全体を拒否し、部分適用はしません。
func (h *Handler) Patch(c *gin.Context) {
	user := users.CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&fields); err != nil {
		apperr.RespondWithError(c, apperr.Invalid("更新内容をJSONで送ってください。"))
		return
	}
	for key := range fields {
		if !updatableTaskFields[key] {
			apperr.RespondWithError(c, apperr.Invalid("項目 "+key+" は更新できません。"))
			return
		}
	}

	var (
		description string
		completed   bool
	)
	if raw, ok := fields["description"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("description は文字列で指定してください。"))
			return
		}
		trimmed, err := ValidateDescription(v)
		if err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		description = trimmed
	}
	if raw, ok := fields["completed"]; ok {
		if err := json.Unmarshal(raw, &completed); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("completed は真偽値で指定してください。"))
			return
		}
	}

	task, err := h.store.Update(c.Request.Context(), user.ID, c.Param("id"), func(t *Task) error {
		if _, ok := fields["description"]; ok {
			t.Description = description
		}
		if _, ok := fields["completed"]; ok {
			t.Completed = completed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apperr.RespondWithError(c, apperr.NotFound())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete は DELETE /tasks/:id のハンドラーです。削除したタスクを返します。
func (h *Handler) Delete(c *gin.Context) {
	user := users.CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	task, err := h.store.Delete(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apperr.RespondWithError(c, apperr.NotFound())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
