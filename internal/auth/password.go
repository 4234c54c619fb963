package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost はパスワードハッシュの計算コスト。
const bcryptCost = 10

// HashPassword はパスワードをbcryptでハッシュ化する。
// ソルトはbcryptが内部で生成する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は提出されたパスワードを保存済みハッシュと照合する。
// storedHashが空の場合（プロバイダー経由で作成されたパスワードなしアカウント）は
// 常にfalseを返し、エラーにはしない。
func VerifyPassword(submitted, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(submitted)) == nil
}
