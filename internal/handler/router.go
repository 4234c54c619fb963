package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrparsekar/SocialMediaISA1/internal/middleware"
	"github.com/mrparsekar/SocialMediaISA1/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	LatencyRecorder   middleware.RequestLatencyRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics AuthMetrics
	AuthConfig  AuthHandlerConfig

	// ヘルスチェック用DB
	DB *sql.DB

	// Prometheusメトリクスハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORSMiddleware
//	→ (認証ルート) RateLimit(Login)
//	→ (/api/*) SessionMiddleware → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.LatencyRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics, deps.AuthConfig)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", NewHealthHandler(deps.DB))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// CSRFトークン発行
	r.Method(http.MethodGet, "/auth/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（ローカル + OAuthフロー）
	// ログイン系にはIP単位のレート制限を適用する
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.LoginMiddleware())
			}

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			r.Get("/google/login", authHandler.ProviderLogin(model.ProviderGoogle))
			r.Get("/google/callback", authHandler.ProviderCallback(model.ProviderGoogle))
			r.Get("/facebook/login", authHandler.ProviderLogin(model.ProviderFacebook))
			r.Get("/facebook/callback", authHandler.ProviderCallback(model.ProviderFacebook))
		})
	})

	// ログアウトは未認証でも冪等に成功する
	r.Post("/logout", authHandler.Logout)

	// 現在ユーザーの取得。セッションが無くても401 {"user": null}を
	// 返す契約のため、セッションミドルウェアの外に置く。
	r.Get("/api/user", authHandler.CurrentUser)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// アカウント削除
		r.Delete("/api/users/me", authHandler.Withdraw)
	})

	return r
}

// NewHealthHandler はDB疎通を含むヘルスチェックハンドラーを返す。
func NewHealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "unhealthy",
					"db":     "down",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
		})
	}
}
