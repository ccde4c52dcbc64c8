package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/task-forge/internal/apperr"
	"github.com/yourusername/task-forge/internal/auth"
	"github.com/yourusername/task-forge/internal/avatar"
)

// Store はユーザーレコードの永続化を提供します。
type Store interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, mutate func(*User) error) (*User, error)
	Delete(ctx context.Context, id string) (*User, error)
}

// TokenService はセッショントークンの発行と検証を提供します。
type TokenService interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// Mailer は取引メールの送信を依頼します。
// 送信は非同期で行われ、失敗はログでのみ観測されます。
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string)
	SendFarewell(ctx context.Context, email, name string)
}

// TaskPurger はアカウント削除時にタスクを連鎖削除します。
type TaskPurger interface {
	DeleteAllForOwner(ctx context.Context, ownerID string) error
}

// Handler はユーザー関連エンドポイントのハンドラー群です。
type Handler struct {
	store         Store
	tokens        TokenService
	mailer        Mailer
	tasks         TaskPurger
	bcryptCost    int
	maxAvatarSize int64
}

// NewHandler は Handler を作成します。
func NewHandler(store Store, tokens TokenService, mailer Mailer, tasks TaskPurger, bcryptCost int, maxAvatarSize int64) *Handler {
	return &Handler{
		store:         store,
		tokens:        tokens,
		mailer:        mailer,
		tasks:         tasks,
		bcryptCost:    bcryptCost,
		maxAvatarSize: maxAvatarSize,
	}
}

// 更新可能なユーザー項目の許可リスト。ここに無いキーはリクエストごと拒否します。
var updatableUserFields = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

// Signup は POST /users のハンドラーです。
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		apperr.RespondWithError(c, apperr.Invalid("name・email・password をJSONで送ってください。"))
		return
	}

	name, err := ValidateName(req.Name)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	password, err := ValidatePassword(req.Password)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	age := 0
	if req.Age != nil {
		age = *req.Age
	}
	if err := ValidateAge(age); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	hash, err := auth.HashPassword(password, h.bcryptCost)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Age:          age,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	user.Tokens = []SessionToken{{Token: token}}

	if err := h.store.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			apperr.RespondWithError(c, apperr.EmailTaken())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	h.mailer.SendWelcome(c.Request.Context(), user.Email, user.Name)

	c.JSON(http.StatusCreated, gin.H{
		"user":  user.Profile(),
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login は POST /users/login のハンドラーです。
// メールアドレスの有無を悟られないよう、失敗理由は区別しません。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.RespondWithError(c, apperr.Invalid("email と password をJSONで送ってください。"))
		return
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		apperr.RespondWithError(c, apperr.LoginFailed())
		return
	}

	user, err := h.store.FindByEmail(c.Request.Context(), email)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		apperr.RespondWithError(c, apperr.LoginFailed())
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	updated, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		u.Tokens = append(u.Tokens, SessionToken{Token: token})
		return nil
	})
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  updated.Profile(),
		"token": token,
	})
}

// Logout は POST /users/logout のハンドラーです。
// このリクエストで照合されたセッションだけを失効させます。
func (h *Handler) Logout(c *gin.Context) {
	user := CurrentUser(c)
	matched := CurrentToken(c)
	if user == nil || matched == "" {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	if _, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		u.RemoveToken(matched)
		return nil
	}); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// LogoutAll は POST /users/logoutAll のハンドラーです。全セッションを失効させます。
func (h *Handler) LogoutAll(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	if _, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		u.Tokens = nil
		return nil
	}); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// Me は GET /users/me のハンドラーです。
func (h *Handler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// UpdateMe は PATCH /users/me のハンドラーです。
// 許可リスト外のキーが1つでもあればリクエスト全体を拒否し、部分適用はしません。
func (h *Handler) UpdateMe(c *gin.Context) {
	user := CurrentUser(c)
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
		if !updatableUserFields[key] {
			apperr.RespondWithError(c, apperr.Invalid("項目 "+key+" は更新できません。"))
			return
		}
	}

	// 先に全項目を検証してから保存する（部分適用を避けるため）
	var (
		name, email, passwordHash string
		age                       int
	)
	if raw, ok := fields["name"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("name は文字列で指定してください。"))
			return
		}
		trimmed, err := ValidateName(v)
		if err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		name = trimmed
	}
	if raw, ok := fields["email"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("email は文字列で指定してください。"))
			return
		}
		normalized, err := NormalizeEmail(v)
		if err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		email = normalized
	}
	if raw, ok := fields["password"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("password は文字列で指定してください。"))
			return
		}
		password, err := ValidatePassword(v)
		if err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		// 平文は保存しない。ここで再ハッシュする。
		hash, err := auth.HashPassword(password, h.bcryptCost)
		if err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		passwordHash = hash
	}
	if raw, ok := fields["age"]; ok {
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			apperr.RespondWithError(c, apperr.Invalid("age は整数で指定してください。"))
			return
		}
		if err := ValidateAge(v); err != nil {
			apperr.RespondWithError(c, err)
			return
		}
		age = v
	}

	updated, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		if _, ok := fields["name"]; ok {
			u.Name = name
		}
		if _, ok := fields["email"]; ok {
			u.Email = email
		}
		if _, ok := fields["password"]; ok {
			u.PasswordHash = passwordHash
		}
		if _, ok := fields["age"]; ok {
			u.Age = age
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			apperr.RespondWithError(c, apperr.EmailTaken())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated.Profile())
}

// DeleteMe は DELETE /users/me のハンドラーです。
// 所有タスクを同期的に連鎖削除したあと、お別れメールを非同期で送ります。
// メール送信の失敗が削除の成否に影響することはありません。
func (h *Handler) DeleteMe(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	if err := h.tasks.DeleteAllForOwner(c.Request.Context(), user.ID); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apperr.RespondWithError(c, apperr.NotFound())
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	h.mailer.SendFarewell(c.Request.Context(), deleted.Email, deleted.Name)

	c.JSON(http.StatusOK, deleted.Profile())
}

// UploadAvatar は POST /users/me/avatar のハンドラーです。
// 画像はリサイズ・PNG正規化してユーザーレコードに保存します。
func (h *Handler) UploadAvatar(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		apperr.RespondWithError(c, apperr.Invalid("avatar フィールドに画像ファイルを添付してください。"))
		return
	}
	if h.maxAvatarSize > 0 && fileHeader.Size > h.maxAvatarSize {
		apperr.RespondWithError(c, apperr.Invalid("画像サイズが上限を超えています。"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	normalized, err := avatar.Normalize(data)
	if err != nil {
		if errors.Is(err, avatar.ErrNotImage) {
			apperr.RespondWithError(c, apperr.Invalid("画像ファイル（PNG/JPEG/GIF）を添付してください。"))
			return
		}
		apperr.RespondWithError(c, err)
		return
	}

	if _, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		u.Avatar = normalized
		return nil
	}); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// DeleteAvatar は DELETE /users/me/avatar のハンドラーです。
func (h *Handler) DeleteAvatar(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apperr.RespondWithError(c, apperr.Unauthorized())
		return
	}

	if _, err := h.store.Update(c.Request.Context(), user.ID, func(u *User) error {
		u.Avatar = nil
		return nil
	}); err != nil {
		apperr.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// ServeAvatar は GET /users/:id/avatar のハンドラーです。認証不要です。
func (h *Handler) ServeAvatar(c *gin.Context) {
	user, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.RespondWithError(c, err)
		return
	}
	if user == nil || len(user.Avatar) == 0 {
		apperr.RespondWithError(c, apperr.NotFound())
		return
	}
	c.Data(http.StatusOK, "image/png", user.Avatar)
}

func now() time.Time {
	return time.Now().UTC()
}
