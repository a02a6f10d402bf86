package legrand

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestExchangeAuthorizationCode(t *testing.T) {
	t.Parallel()

	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q, want form encoding", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm returned error: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"x","refresh_token":"y","expires_in":3600}`))
	}))
	defer server.Close()

	tc := NewTokenClient(server.Client(), server.URL)
	before := time.Now()
	got, err := tc.Exchange(context.Background(), PendingCodeGrant("secret_code", "n1"), "test", "secret")
	if err != nil {
		t.Fatalf("Exchange returned error: %v", err)
	}

	expectedForm := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "secret_code",
		"client_id":     "test",
		"client_secret": "secret",
		"refresh_token": "",
	}
	for key, want := range expectedForm {
		if got := form.Get(key); got != want {
			t.Errorf("form %s = %q, want %q", key, got, want)
		}
	}

	if got.Kind() != GrantToken {
		t.Fatalf("Kind() = %s, want token", got.Kind())
	}
	if got.AccessToken() != "x" || got.RefreshToken() != "y" {
		t.Errorf("tokens = %q/%q, want x/y", got.AccessToken(), got.RefreshToken())
	}
	if !got.IsValid(before.Add(59 * time.Minute)) {
		t.Error("token should be valid 59 minutes after exchange")
	}
	if got.IsValid(time.Now().Add(61 * time.Minute)) {
		t.Error("token should be expired 61 minutes after exchange")
	}
}

func TestExchangeRefreshToken(t *testing.T) {
	t.Parallel()

	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm returned error: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"x","refresh_token":"y","expires_in":3600}`))
	}))
	defer server.Close()

	expired := TokenGrant("none", "refresh", time.Now().Add(-time.Hour))
	tc := NewTokenClient(server.Client(), server.URL)
	before := time.Now()
	got, err := tc.Exchange(context.Background(), expired, "test", "secret")
	if err != nil {
		t.Fatalf("Exchange returned error: %v", err)
	}

	expectedForm := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": "refresh",
		"client_id":     "test",
		"client_secret": "secret",
		"code":          "",
	}
	for key, want := range expectedForm {
		if got := form.Get(key); got != want {
			t.Errorf("form %s = %q, want %q", key, got, want)
		}
	}

	if got.AccessToken() != "x" || got.RefreshToken() != "y" {
		t.Errorf("tokens = %q/%q, want x/y", got.AccessToken(), got.RefreshToken())
	}
	if !got.IsValid(before.Add(59 * time.Minute)) {
		t.Error("refreshed token should be valid 59 minutes after exchange")
	}
}

func TestExchangeUnsupportedGrant(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	tc := NewTokenClient(server.Client(), server.URL)
	_, err := tc.Exchange(context.Background(), NoGrant(), "test", "secret")
	if err == nil {
		t.Fatal("Exchange on empty grant did not fail")
	}
	var authErr *AuthenticationError
	ok := errors.As(err, &authErr)
	if !ok || authErr.Type != ErrUnsupportedGrant.Type {
		t.Fatalf("Exchange returned %v, want unsupported_grant", err)
	}
	if calls != 0 {
		t.Errorf("token endpoint was called %d times, want 0", calls)
	}
}

func TestExchangeEndpointError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token expired"}`))
	}))
	defer server.Close()

	input := TokenGrant("none", "refresh", time.Now().Add(-time.Hour))
	tc := NewTokenClient(server.Client(), server.URL)
	got, err := tc.Exchange(context.Background(), input, "test", "secret")
	if err == nil {
		t.Fatal("Exchange did not fail on HTTP 400")
	}

	var endpointErr *TokenEndpointError
	ok := errors.As(err, &endpointErr)
	if !ok {
		t.Fatalf("Exchange returned %T, want *TokenEndpointError", err)
	}
	if endpointErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", endpointErr.StatusCode)
	}
	if endpointErr.Code != "invalid_grant" || endpointErr.Description != "refresh token expired" {
		t.Errorf("error fields = %q/%q, want invalid_grant/refresh token expired", endpointErr.Code, endpointErr.Description)
	}

	if got.Kind() != GrantToken || got.RefreshToken() != "refresh" {
		t.Error("failed exchange should return the input grant unchanged")
	}
}

func TestExchangeMalformedResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `not json at all`},
		{"missing access token", `{"refresh_token":"y","expires_in":3600}`},
		{"missing expiry", `{"access_token":"x","refresh_token":"y"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tc := NewTokenClient(server.Client(), server.URL)
			_, err := tc.Exchange(context.Background(), PendingCodeGrant("abc", "n1"), "test", "secret")
			if err == nil {
				t.Fatal("Exchange did not fail")
			}
			var authErr *AuthenticationError
			ok := errors.As(err, &authErr)
			if !ok || authErr.Type != ErrMalformedResponse.Type {
				t.Fatalf("Exchange returned %v, want malformed_response", err)
			}
		})
	}
}

func TestExchangeResponseVariants(t *testing.T) {
	t.Parallel()

	t.Run("refresh token inherited when omitted", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"x","expires_in":3600}`))
		}))
		defer server.Close()

		tc := NewTokenClient(server.Client(), server.URL)
		got, err := tc.Exchange(context.Background(), TokenGrant("old", "keep-me", time.Now().Add(-time.Hour)), "test", "secret")
		if err != nil {
			t.Fatalf("Exchange returned error: %v", err)
		}
		if got.RefreshToken() != "keep-me" {
			t.Errorf("RefreshToken() = %q, want keep-me", got.RefreshToken())
		}
	})

	t.Run("absolute expires_on timestamp", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"x","refresh_token":"y","expires_on":1700000000}`))
		}))
		defer server.Close()

		tc := NewTokenClient(server.Client(), server.URL)
		got, err := tc.Exchange(context.Background(), PendingCodeGrant("abc", "n1"), "test", "secret")
		if err != nil {
			t.Fatalf("Exchange returned error: %v", err)
		}
		if !got.ExpiresAt().Equal(time.Unix(1700000000, 0)) {
			t.Errorf("ExpiresAt() = %v, want %v", got.ExpiresAt(), time.Unix(1700000000, 0))
		}
	})

	t.Run("string-encoded expires_in", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"x","refresh_token":"y","expires_in":"3600"}`))
		}))
		defer server.Close()

		tc := NewTokenClient(server.Client(), server.URL)
		before := time.Now()
		got, err := tc.Exchange(context.Background(), PendingCodeGrant("abc", "n1"), "test", "secret")
		if err != nil {
			t.Fatalf("Exchange returned error: %v", err)
		}
		if !got.IsValid(before.Add(59 * time.Minute)) {
			t.Error("token should be valid 59 minutes after exchange")
		}
	})
}
