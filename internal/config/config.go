// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 認証設定
	TokenSecret string // セッショントークン署名用の秘密鍵
	BcryptCost  int    // bcryptのコストパラメータ

	// ストレージ設定
	RedisURL string // ユーザー・タスク保存とメールキューで共用するRedis接続URL

	// アバター設定
	MaxAvatarSize int64 // アップロード可能なアバター画像の最大サイズ（バイト）

	// メール設定
	MailFrom         string // 送信元アドレス
	MailSMTPAddr     string // SMTPサーバーのアドレス（host:port、空ならログ出力のみ）
	MailSMTPUser     string // SMTP認証ユーザー名
	MailSMTPPassword string // SMTP認証パスワード
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// 認証設定
		TokenSecret: getEnv("TOKEN_SECRET", ""),
		BcryptCost:  getEnvAsInt("BCRYPT_COST", 10),

		// ストレージ設定
		RedisURL: getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		// アバター設定
		MaxAvatarSize: getEnvAsInt64("MAX_AVATAR_SIZE", 1048576), // 1MB

		// メール設定
		MailFrom:         getEnv("MAIL_FROM", "noreply@task-forge.local"),
		MailSMTPAddr:     getEnv("MAIL_SMTP_ADDR", ""),
		MailSMTPUser:     getEnv("MAIL_SMTP_USER", ""),
		MailSMTPPassword: getEnv("MAIL_SMTP_PASSWORD", ""),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// ローカル開発ではトークン秘密鍵は任意（未設定時は開発用の値を使う）
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.TokenSecret == "" {
			return fmt.Errorf("TOKEN_SECRET is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
