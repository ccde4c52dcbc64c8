// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/task-forge/internal/auth"
	"github.com/yourusername/task-forge/internal/config"
	"github.com/yourusername/task-forge/internal/tasks"
	"github.com/yourusername/task-forge/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// ストレージへの接続
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)

	userStore := users.NewRedisStore(rdb)
	taskStore := tasks.NewRedisStore(rdb)

	// トークン署名鍵。release モードでは config.Validate が必須チェック済み
	secret := cfg.TokenSecret
	if secret == "" {
		secret = "task-forge-dev-secret"
		log.Printf("TOKEN_SECRET is not set, using the development fallback")
	}
	issuer := auth.NewTokenIssuer(secret)

	// メールワーカーの起動
	mailManager, err := setupMail(cfg)
	if err != nil {
		log.Fatalf("Failed to setup mail workers: %v", err)
	}
	mailManager.StartWorkers()

	// ルーティングの設定
	setupRoutes(router, cfg, userStore, taskStore, issuer, mailManager)

	// サーバーの起動
	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)

	// SIGINT/SIGTERMでHTTPサーバーとメールワーカーを順に停止する
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("Shutting down ...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down http server cleanly: %v", err)
	}
	if err := mailManager.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down mail workers cleanly: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "task-forge-api",
		"version": "0.1.0",
	})
}

// setupRoutes はエンドポイントと認証ガードの配線を行います。
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	userStore *users.RedisStore,
	taskStore *tasks.RedisStore,
	issuer *auth.TokenIssuer,
	mailer users.Mailer,
) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	userHandler := users.NewHandler(userStore, issuer, mailer, taskStore, cfg.BcryptCost, cfg.MaxAvatarSize)
	taskHandler := tasks.NewHandler(taskStore)
	requireAuth := users.RequireAuth(userStore, issuer)

	// ユーザー関連
	router.POST("/users", userHandler.Signup)
	router.POST("/users/login", userHandler.Login)
	router.POST("/users/logout", requireAuth, userHandler.Logout)
	router.POST("/users/logoutAll", requireAuth, userHandler.LogoutAll)
	router.GET("/users/me", requireAuth, userHandler.Me)
	router.PATCH("/users/me", requireAuth, userHandler.UpdateMe)
	router.DELETE("/users/me", requireAuth, userHandler.DeleteMe)
	router.POST("/users/me/avatar", requireAuth, userHandler.UploadAvatar)
	router.DELETE("/users/me/avatar", requireAuth, userHandler.DeleteAvatar)
	router.GET("/users/:id/avatar", userHandler.ServeAvatar)

	// タスク関連（すべて認証必須）
	taskRoutes := router.Group("/tasks")
	taskRoutes.Use(requireAuth)
	{
		taskRoutes.POST("", taskHandler.Create)
		taskRoutes.GET("", taskHandler.List)
		taskRoutes.GET("/:id", taskHandler.Get)
		taskRoutes.PATCH("/:id", taskHandler.Patch)
		taskRoutes.DELETE("/:id", taskHandler.Delete)
	}
}
