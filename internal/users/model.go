// Package users はユーザーアカウントの管理とセッション認証を提供します。
package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/yourusername/task-forge/internal/apperr"
)

// SessionToken は発行済みセッショントークン1件を表します。
// ログインごとに追加され、ログアウトで削除されます。
type SessionToken struct {
	Token string `json:"token"`
}

// User はストレージに保存されるユーザーレコードです。
// JSONタグは永続化用で、APIレスポンスには Profile を使います。
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"passwordHash"`
	Age          int            `json:"age"`
	Avatar       []byte         `json:"avatar,omitempty"`
	Tokens       []SessionToken `json:"tokens"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Profile はAPIレスポンスに含めるユーザー情報です。
// パスワードハッシュ・トークン・アバター本体は含みません。
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile は公開用のビューを返します。
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasToken はトークンが現在有効なセッション一覧に含まれるかを返します。
// 署名が正しくても、ここに無いトークンは失効済みです。
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

// RemoveToken は完全一致するトークンだけをセッション一覧から取り除きます。
func (u *User) RemoveToken(token string) {
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
}

// ValidateName は表示名を検証し、前後の空白を除いた値を返します。
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperr.Invalid("name を入力してください。")
	}
	return trimmed, nil
}

// NormalizeEmail はメールアドレスを検証し、小文字化した値を返します。
// 大文字小文字を区別しない一意性のため、保存時は常に小文字です。
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperr.Invalid("email の形式が正しくありません。")
	}
	return trimmed, nil
}

// ValidatePassword はパスワードポリシーを検証し、前後の空白を除いた値を返します。
// 7文字以上で、"password" という文字列を含んではいけません。
func ValidatePassword(password string) (string, error) {
	trimmed := strings.TrimSpace(password)
	if len(trimmed) < 7 {
		return "", apperr.Invalid("password は7文字以上で入力してください。")
	}
	if strings.Contains(strings.ToLower(trimmed), "password") {
		return "", apperr.Invalid("password に \"password\" を含めることはできません。")
	}
	return trimmed, nil
}

// ValidateAge は年齢が非負であることを検証します。
func ValidateAge(age int) error {
	if age < 0 {
		return apperr.Invalid("age は0以上で入力してください。")
	}
	return nil
}
