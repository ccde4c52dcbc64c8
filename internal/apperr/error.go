// Package apperr はAPI全体で共有するエラー型とレスポンス変換を提供します。
package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// エラーコード一覧。HTTPステータスへの対応は RespondWithError が行います。
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeEmailTaken   = "EMAIL_TAKEN"
	CodeLoginFailed  = "LOGIN_FAILED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error はAPIが呼び出し元へ返す構造化エラーです。
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Invalid はバリデーション失敗のエラーを作成します。
func Invalid(message string) *Error {
	return &Error{Code: CodeInvalidInput, Message: message}
}

// EmailTaken はメールアドレス重複のエラーを作成します。
func EmailTaken() *Error {
	return &Error{Code: CodeEmailTaken, Message: "このメールアドレスは既に登録されています。"}
}

// LoginFailed はログイン失敗のエラーを作成します。
// メールアドレスの存在有無が判別できないよう、メッセージは常に同一です。
func LoginFailed() *Error {
	return &Error{Code: CodeLoginFailed, Message: "メールアドレスまたはパスワードが正しくありません。"}
}

// Unauthorized は認証失敗のエラーを作成します。
// 失効済みトークン・署名不正・ユーザー不在のいずれでもメッセージは同一です。
func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "認証が必要です。"}
}

// NotFound はリソース不在のエラーを作成します。
// 他ユーザー所有のリソースへのアクセスも同じエラーになります。
func NotFound() *Error {
	return &Error{Code: CodeNotFound, Message: "指定されたリソースは存在しません。"}
}

// RespondWithError はエラーをHTTPレスポンスへ変換します。
func RespondWithError(c *gin.Context, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		c.JSON(statusFor(apiErr.Code), gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    CodeInternal,
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func statusFor(code string) int {
	switch code {
	case CodeInvalidInput, CodeEmailTaken, CodeLoginFailed:
		// メール重複はこの層ではバリデーション失敗と同じ扱い
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
