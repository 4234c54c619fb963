// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mrparsekar/SocialMediaISA1/internal/model"
)

// ErrDuplicateUser はusersテーブルの(email, provider)一意制約違反を表す。
// 存在チェック後のINSERTは同時登録に対してレースがあるため、
// 実際の一意性保証はストレージ層の制約であり、このエラーがその検出手段となる。
var ErrDuplicateUser = errors.New("user already exists for email and provider")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。プロバイダーを問わない。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailAndProvider はメールアドレスとプロバイダーの組でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmailAndProvider(ctx context.Context, email, provider string) (*model.User, error)

	// Create はユーザーを作成する。
	// (email, provider)の一意制約違反の場合はErrDuplicateUserを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateAccessToken は指定ユーザーのアクセストークンのみを更新する。
	// 他の列には触れない。
	UpdateAccessToken(ctx context.Context, id, accessToken string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。
	// 見つからない場合と期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	// 存在しないセッションの削除はエラーにならない（冪等）。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	// クリーンアップワーカーから定期実行される。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
