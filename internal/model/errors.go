// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string `json:"code"`     // エラーコード
	Message  string `json:"message"`  // エラーメッセージ
	Category string `json:"category"` // カテゴリ: auth, validation, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeEmailTaken       = "EMAIL_TAKEN"
	ErrCodeMissingEmail     = "MISSING_EMAIL"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// NewValidationFailedError は必須項目不足などの入力検証エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewAuthFailedError は認証失敗エラーを生成する。
// ユーザー未存在とパスワード不一致のどちらでも同じレスポンスを返し、
// どちらが原因かを外部に漏らさない。区別はログにのみ残す。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複登録エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "登録済みのアカウントでログインしてください。",
	}
}

// NewMissingEmailError はプロバイダープロフィールにメールアドレスが
// 含まれていない場合のエラーを生成する。アカウントは作成されない。
func NewMissingEmailError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingEmail,
		Message:  fmt.Sprintf("%sアカウントからメールアドレスを取得できませんでした。", provider),
		Category: "auth",
		Action:   "プロバイダー側でメールアドレスの共有を許可してから再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInternalError は内部サーバーエラーを生成する。
// 詳細はログにのみ記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
