package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFacebookGetLoginURL(t *testing.T) {
	p := NewFacebookOAuthProvider(FacebookOAuthConfig{
		ClientID:    "app-123",
		RedirectURL: "http://localhost:8080/auth/facebook/callback",
	})

	rawURL := p.GetLoginURL("state-xyz")

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}

	q := u.Query()
	if q.Get("client_id") != "app-123" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "app-123")
	}
	if q.Get("state") != "state-xyz" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-xyz")
	}
	if q.Get("scope") != "email" {
		t.Errorf("scope = %q, want %q", q.Get("scope"), "email")
	}
}

func TestFacebookExchangeCode_Success(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Facebookのトークンエンドポイントはクエリパラメータ付きGET
		if r.Method != http.MethodGet {
			t.Errorf("token request method = %s, want GET", r.Method)
		}
		q := r.URL.Query()
		if q.Get("code") != "fb-code-1" {
			t.Errorf("code = %q, want %q", q.Get("code"), "fb-code-1")
		}
		if q.Get("client_secret") != "app-secret" {
			t.Errorf("client_secret = %q, want %q", q.Get("client_secret"), "app-secret")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "fb-token-1", "token_type": "bearer", "expires_in": 5183944}`))
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("access_token") != "fb-token-1" {
			t.Errorf("access_token = %q, want %q", q.Get("access_token"), "fb-token-1")
		}
		if q.Get("fields") != "id,name,email" {
			t.Errorf("fields = %q, want %q", q.Get("fields"), "id,name,email")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "fb-user-1", "name": "FB User", "email": "fb@example.com"}`))
	}))
	defer userInfoServer.Close()

	p := NewFacebookOAuthProvider(FacebookOAuthConfig{
		ClientID:     "app-123",
		ClientSecret: "app-secret",
		RedirectURL:  "http://localhost:8080/auth/facebook/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	info, err := p.ExchangeCode(context.Background(), "fb-code-1")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if info.ProviderUserID != "fb-user-1" {
		t.Errorf("ProviderUserID = %q, want %q", info.ProviderUserID, "fb-user-1")
	}
	if info.Email != "fb@example.com" {
		t.Errorf("Email = %q, want %q", info.Email, "fb@example.com")
	}
	if info.Provider != "facebook" {
		t.Errorf("Provider = %q, want %q", info.Provider, "facebook")
	}
	if info.AccessToken != "fb-token-1" {
		t.Errorf("AccessToken = %q, want %q", info.AccessToken, "fb-token-1")
	}
}

func TestFacebookExchangeCode_EmailNotShared(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "fb-token-2"}`))
	}))
	defer tokenServer.Close()

	// ユーザーがメール共有を拒否した場合、/meのレスポンスにemailが含まれない
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "fb-user-2", "name": "Private User"}`))
	}))
	defer userInfoServer.Close()

	p := NewFacebookOAuthProvider(FacebookOAuthConfig{
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	info, err := p.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if info.Email != "" {
		t.Errorf("Email = %q, want empty", info.Email)
	}
}

func TestFacebookExchangeCode_TokenEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid verification code format."}}`))
	}))
	defer tokenServer.Close()

	p := NewFacebookOAuthProvider(FacebookOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	_, err := p.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error for invalid code")
	}
}
