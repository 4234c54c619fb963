// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダーの識別子。usersテーブルのprovider列に保存される。
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User はサービス利用ユーザーを表す。
// providerが"local"の場合のみPasswordHashを持ち、
// 外部プロバイダー経由のユーザーのみAccessTokenを持つ。
type User struct {
	ID           string
	Name         string
	Email        string
	Provider     string // "local", "google", "facebook"。作成後は変更しない
	PasswordHash string // providerがlocalの場合のみ。生のパスワードは保存しない
	AccessToken  string // 外部プロバイダーのアクセストークン。ログイン成功のたびに更新される
	DateOfBirth  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPIレスポンスとして公開可能なユーザー情報。
// PasswordHashとAccessTokenは決して含まない。
type PublicUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Public はUserから公開用のPublicUserを生成する。
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Provider: u.Provider,
	}
}

// Session はユーザーのログインセッションを表す。
// IDは暗号的に安全な乱数から生成した不透明トークン。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
