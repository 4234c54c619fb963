package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// Public()が秘匿フィールドを一切含まないこと
func TestUser_Public_OmitsSensitiveFields(t *testing.T) {
	dob := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	user := &User{
		ID:           "user-1",
		Name:         "山田太郎",
		Email:        "taro@example.com",
		Provider:     ProviderLocal,
		PasswordHash: "$2a$10$secret-hash",
		AccessToken:  "provider-access-token",
		DateOfBirth:  &dob,
	}

	pub := user.Public()

	if pub.ID != user.ID {
		t.Errorf("ID = %q, want %q", pub.ID, user.ID)
	}
	if pub.Name != user.Name {
		t.Errorf("Name = %q, want %q", pub.Name, user.Name)
	}
	if pub.Email != user.Email {
		t.Errorf("Email = %q, want %q", pub.Email, user.Email)
	}
	if pub.Provider != ProviderLocal {
		t.Errorf("Provider = %q, want %q", pub.Provider, ProviderLocal)
	}

	data, err := json.Marshal(pub)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	body := string(data)
	for _, secret := range []string{"secret-hash", "provider-access-token", "1990"} {
		if strings.Contains(body, secret) {
			t.Errorf("public user JSON should not contain %q: %s", secret, body)
		}
	}
}

// APIErrorがerrorインターフェースとして機能すること
func TestAPIError_Error(t *testing.T) {
	var err error = NewEmailTakenError()

	msg := err.Error()
	if !strings.Contains(msg, ErrCodeEmailTaken) {
		t.Errorf("Error() = %q, should contain code %q", msg, ErrCodeEmailTaken)
	}
}

// 認証失敗エラーが原因（ユーザー未存在かパスワード不一致か）を区別しないこと
func TestNewAuthFailedError_Uniform(t *testing.T) {
	e := NewAuthFailedError()

	if e.Code != ErrCodeAuthFailed {
		t.Errorf("Code = %q, want %q", e.Code, ErrCodeAuthFailed)
	}
	for _, leak := range []string{"存在しません", "not found", "password mismatch"} {
		if strings.Contains(e.Message, leak) {
			t.Errorf("auth failed message leaks cause: %q", e.Message)
		}
	}
}

// 各コンストラクタが正しいコードとカテゴリを設定すること
func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		code     string
		category string
	}{
		{"validation", NewValidationFailedError("name is required"), ErrCodeValidationFailed, "validation"},
		{"auth failed", NewAuthFailedError(), ErrCodeAuthFailed, "auth"},
		{"email taken", NewEmailTakenError(), ErrCodeEmailTaken, "auth"},
		{"missing email", NewMissingEmailError(ProviderFacebook), ErrCodeMissingEmail, "auth"},
		{"unauthorized", NewUnauthorizedError(), ErrCodeUnauthorized, "auth"},
		{"internal", NewInternalError(), ErrCodeInternalError, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.category)
			}
			if tt.err.Message == "" || tt.err.Action == "" {
				t.Error("Message and Action should not be empty")
			}
		})
	}
}

// プロバイダー名がエラーメッセージに反映されること
func TestNewMissingEmailError_IncludesProvider(t *testing.T) {
	e := NewMissingEmailError(ProviderGoogle)
	if !strings.Contains(e.Message, ProviderGoogle) {
		t.Errorf("Message = %q, should contain provider name", e.Message)
	}
}
