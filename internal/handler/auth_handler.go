// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrparsekar/SocialMediaISA1/internal/auth"
	"github.com/mrparsekar/SocialMediaISA1/internal/middleware"
	"github.com/mrparsekar/SocialMediaISA1/internal/model"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
)

// validate はリクエストペイロードの検証器。ハンドラー間で共有する。
var validate = validator.New()

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(provider, state string) (string, error)
	Register(ctx context.Context, params auth.RegisterParams) (*model.Session, *model.User, error)
	LoginLocal(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	HandleProviderCallback(ctx context.Context, provider, code string) (*model.Session, *model.User, error)
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	Logout(ctx context.Context, sessionID string) error
	DeleteAccount(ctx context.Context, userID string) error
}

// AuthMetrics は認証結果の記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type AuthMetrics interface {
	RecordLoginAttempt(provider, outcome string)
	RecordRegistration()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL   string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
// metricsはnilでもよい（テスト用）。
func NewAuthHandler(service AuthServiceInterface, metrics AuthMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		config:  config,
	}
}

// registerRequest はローカル登録のリクエストボディ。
type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DOB      string `json:"dob"      validate:"omitempty,datetime=2006-01-02"`
}

// loginRequest はローカルログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register はローカルアカウントを新規作成する。登録成功はログインを兼ねる。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("invalid JSON body"))
		return
	}

	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	params := auth.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.DOB != "" {
		dob, err := time.Parse("2006-01-02", req.DOB)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("invalid dob format"))
			return
		}
		params.DateOfBirth = &dob
	}

	session, user, err := h.service.Register(r.Context(), params)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeAPIErrorResponse(w, http.StatusConflict, model.NewEmailTakenError())
			return
		}
		slog.Error("registration failed", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRegistration()
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": user.Public(),
	})
}

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
// ユーザー未存在とパスワード不一致は同一のレスポンスを返し、
// どちらが原因かはログにのみ残す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("invalid JSON body"))
		return
	}

	if err := validate.Struct(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError(err.Error()))
		return
	}

	session, user, err := h.service.LoginLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			slog.Warn("login failed: user not found")
			h.recordLogin(model.ProviderLocal, "failure")
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		case errors.Is(err, auth.ErrInvalidPassword):
			slog.Warn("login failed: invalid password")
			h.recordLogin(model.ProviderLocal, "failure")
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		default:
			slog.Error("login failed", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		}
		return
	}

	h.recordLogin(model.ProviderLocal, "success")
	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": user.Public(),
	})
}

// ProviderLogin は外部プロバイダーのOAuthフローを開始する。
// GET /auth/{provider}/login
func (h *AuthHandler) ProviderLogin(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := generateState()
		if err != nil {
			slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
			return
		}

		url, err := h.service.GetLoginURL(provider, state)
		if err != nil {
			slog.Error("failed to build oauth login URL",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
			return
		}

		// stateをCookieに保存（CSRF対策）
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/",
			MaxAge:   600, // 10分
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}

// ProviderCallback はOAuthコールバックを処理する。
// GET /auth/{provider}/callback?code=xxx&state=yyy
// 成功時はフロントエンドのダッシュボードへ、失敗時はフロントエンドの
// トップへエラー種別付きでリダイレクトする。
func (h *AuthHandler) ProviderCallback(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. stateの検証（CSRF対策）
		state := r.URL.Query().Get("state")
		stateCookie, err := r.Cookie(oauthStateCookie)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
			slog.Warn("oauth state mismatch",
				slog.String("provider", provider),
			)
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}

		// stateクッキーを削除
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		// 2. 認可コードの取得
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}

		// 3. 認証処理
		session, _, err := h.service.HandleProviderCallback(r.Context(), provider, code)
		if err != nil {
			h.recordLogin(provider, "failure")

			if errors.Is(err, auth.ErrMissingEmail) {
				slog.Warn("oauth callback rejected: no email in profile",
					slog.String("provider", provider),
				)
				http.Redirect(w, r, h.config.FrontendURL+"/?error=missing_email", http.StatusTemporaryRedirect)
				return
			}

			slog.Error("oauth callback failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			http.Redirect(w, r, h.config.FrontendURL+"/?error=auth_failed", http.StatusTemporaryRedirect)
			return
		}

		h.recordLogin(provider, "success")

		// 4. セッションCookieを設定（HTTP Only）
		h.setSessionCookie(w, session)

		// 5. フロントエンドのダッシュボードにリダイレクト
		http.Redirect(w, r, h.config.FrontendURL+"/dashboard", http.StatusTemporaryRedirect)
	}
}

// CurrentUser は現在のログインユーザー情報を返す。
// GET /api/user
// 未認証の場合は401と{"user": null}を返す。
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"user": nil})
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"user": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// Logout はセッションを破棄する。冪等。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *AuthHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		slog.Error("failed to delete account",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// recordLogin はログイン試行の結果をメトリクスに記録する。
func (h *AuthHandler) recordLogin(provider, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordLoginAttempt(provider, outcome)
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
