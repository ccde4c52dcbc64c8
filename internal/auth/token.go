package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken は署名不正・構造不正のトークンに対して返されます。
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer はセッショントークンの発行と署名検証を行います。
// 失効（ログアウト）の判定はユーザーレコード側のトークンリストと
// 突き合わせる必要があるため、ここでは行いません。
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer は署名鍵を受け取って TokenIssuer を作成します。
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Issue はユーザーIDを埋め込んだ署名付きトークンを発行します。
// jtiにUUIDを含めるため、同一ユーザーでも発行ごとに異なるトークンになります。
func (i *TokenIssuer) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	})
	return token.SignedString(i.secret)
}

// Verify はトークンの署名を検証し、埋め込まれたユーザーIDを返します。
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
