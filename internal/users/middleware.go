package users

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/apperr"
)

// ContextUserKey / ContextTokenKey は、ハンドラー間で認証結果を共有するためのキーです。
const (
	ContextUserKey  = "auth.user"
	ContextTokenKey = "auth.token"
)

// TokenVerifier はトークン署名の検証だけを行います。
// 失効判定はここではなく、保存済みトークンリストとの照合で行います。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth はベアラートークンを検証するミドルウェアを返します。
// 署名検証 → ユーザー解決 → 保存済みトークンとの完全一致確認の順に進み、
// どの段階で失敗しても同一の401を返します。
func RequireAuth(store Store, verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		user, err := store.FindByID(c.Request.Context(), userID)
		if err != nil {
			apperr.RespondWithError(c, err)
			c.Abort()
			return
		}
		if user == nil || !user.HasToken(token) {
			abortUnauthorized(c)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// CurrentUser はミドルウェアが解決したユーザーを取り出します。
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(*User); ok {
			return user
		}
	}
	return nil
}

// CurrentToken はこのリクエストで照合されたセッショントークンを取り出します。
// ログアウトで「このセッションだけ」を失効させるために使います。
func CurrentToken(c *gin.Context) string {
	if v, ok := c.Get(ContextTokenKey); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context) {
	apperr.RespondWithError(c, apperr.Unauthorized())
	c.Abort()
}
