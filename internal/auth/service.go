// Package auth はローカル認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mrparsekar/SocialMediaISA1/internal/model"
	"github.com/mrparsekar/SocialMediaISA1/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google", "facebook"
	AccessToken    string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// GoogleとFacebookの2つの実装を持つ。
type OAuthProvider interface {
	// Name はプロバイダーの識別子（"google"等）を返す。
	Name() string
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// サービス層の判別用エラー。
// ErrUserNotFoundとErrInvalidPasswordはログでのみ区別し、
// ハンドラー層ではどちらも同一の認証失敗レスポンスに畳み込む。
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmailTaken      = errors.New("email already registered")
	ErrMissingEmail    = errors.New("no email in provider profile")
	ErrUnknownProvider = errors.New("unknown oauth provider")
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// 資格情報の照合、アカウントの突合・作成、セッションの発行を担う。
type Service struct {
	providers   map[string]OAuthProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	providers []OAuthProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	m := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Service{
		providers:   m,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.GetLoginURL(state), nil
}

// RegisterParams はローカル登録の入力。
type RegisterParams struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth *time.Time
}

// Register はローカルアカウントを新規作成し、セッションを発行する（登録はログインを兼ねる）。
// プロバイダーを問わず同一メールアドレスのアカウントが既に存在する場合はErrEmailTakenを返す。
// 存在チェックは親切なエラーメッセージのための事前確認であり、
// 同時登録のレースはストレージ層の一意制約（ErrDuplicateUser）で捕捉する。
func (s *Service) Register(ctx context.Context, params RegisterParams) (*model.Session, *model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, params.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	passwordHash, err := HashPassword(params.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         params.Name,
		Email:        params.Email,
		Provider:     model.ProviderLocal,
		PasswordHash: passwordHash,
		DateOfBirth:  params.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		// セッションが確立できない場合は登録全体を失敗させる。
		// 作成済みのアカウントは補償削除し、部分的な効果を残さない。
		s.compensateCreate(user.ID)
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("local user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return session, user, nil
}

// LoginLocal はメールアドレスとパスワードでローカルアカウントにログインする。
// アカウント未存在はErrUserNotFound、パスワード不一致はErrInvalidPasswordを返す。
// 2つのエラーはログ用の区別であり、外部応答では同一に扱うこと。
func (s *Service) LoginLocal(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmailAndProvider(ctx, email, model.ProviderLocal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidPassword
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("local user logged in", slog.String("user_id", user.ID))

	return session, user, nil
}

// HandleProviderCallback はOAuthコールバックを処理し、セッションを発行する。
// プロバイダーのプロフィールにメールアドレスがない場合はErrMissingEmailを返し、
// アカウントは作成しない（GoogleとFacebookで方針を統一している）。
//
// アカウントの突合方針はプロバイダーごとに異なる:
//   - google: メールアドレスのみで検索する。同一メールの既存アカウントが
//     別プロバイダーであってもそのアカウントにログインする（プロバイダー横断の統合）。
//   - facebook: (email, provider='facebook')で検索する。別プロバイダーの
//     アカウントとは統合せず、新規アカウントを作成する。
//
// 既存アカウントに一致した場合はaccess_tokenのみを更新し、他の項目には触れない。
func (s *Service) HandleProviderCallback(ctx context.Context, provider, code string) (*model.Session, *model.User, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, nil, ErrUnknownProvider
	}

	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	if info.Email == "" {
		return nil, nil, ErrMissingEmail
	}

	user, err := s.lookupByProviderPolicy(ctx, info)
	if err != nil {
		return nil, nil, err
	}

	if user != nil {
		if err := s.userRepo.UpdateAccessToken(ctx, user.ID, info.AccessToken); err != nil {
			return nil, nil, fmt.Errorf("failed to update access token: %w", err)
		}
		user.AccessToken = info.AccessToken

		slog.Info("existing user logged in via provider",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
	} else {
		user, err = s.createProviderUser(ctx, info)
		if err != nil {
			return nil, nil, err
		}
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// lookupByProviderPolicy はプロバイダーごとの突合方針で既存アカウントを検索する。
func (s *Service) lookupByProviderPolicy(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	var user *model.User
	var err error

	if info.Provider == model.ProviderGoogle {
		user, err = s.userRepo.FindByEmail(ctx, info.Email)
	} else {
		user, err = s.userRepo.FindByEmailAndProvider(ctx, info.Email, info.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// createProviderUser はプロバイダープロフィールから新規アカウントを作成する。
// パスワードハッシュは持たない。同時コールバックによる一意制約違反は
// 再検索してトークン更新にフォールバックする。
func (s *Service) createProviderUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	now := time.Now()
	user := &model.User{
		ID:          uuid.New().String(),
		Name:        info.Name,
		Email:       info.Email,
		Provider:    info.Provider,
		AccessToken: info.AccessToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.userRepo.Create(ctx, user)
	if err == nil {
		slog.Info("new provider user created",
			slog.String("user_id", user.ID),
			slog.String("provider", info.Provider),
		)
		return user, nil
	}

	if !errors.Is(err, repository.ErrDuplicateUser) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 同時コールバックに先を越された場合: 勝った方のレコードを使う
	existing, lookupErr := s.lookupByProviderPolicy(ctx, info)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if existing == nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.userRepo.UpdateAccessToken(ctx, existing.ID, info.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to update access token: %w", err)
	}
	existing.AccessToken = info.AccessToken

	return existing, nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションのたびにリポジトリを読み直し、キャッシュは持たない。
// セッションが無効な場合と裏付けのアカウントが消えている場合は(nil, nil)を返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// Logout はセッションを破棄する。
// 既に存在しないセッションの破棄もエラーにしない（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// DeleteAccount はユーザーアカウントを削除する。
// セッションを先に全削除してからユーザー本体を削除する。
// ユーザー削除はDB側のON DELETE CASCADEでもセッションを巻き込むが、
// アプリ側でも明示的に削除して残存セッションをなくす。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user account deleted", slog.String("user_id", userID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// compensateCreate は登録の後段で失敗した場合にアカウントをベストエフォートで削除する。
// 呼び出し元のコンテキストは既にキャンセルされている可能性があるため、
// 独立したコンテキストで実行する。
func (s *Service) compensateCreate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		slog.Error("failed to compensate user creation",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
