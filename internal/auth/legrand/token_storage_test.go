package legrand

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	info := &AuthorizationInfo{
		Grant:           TokenGrant("tok", "ref", expires),
		ClientID:        "client",
		ClientSecret:    "secret",
		SubscriptionKey: "subkey",
	}

	if err := info.SaveTokenToFile(path); err != nil {
		t.Fatalf("SaveTokenToFile returned error: %v", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat saved file: %v", err)
	}
	if perm := stat.Mode().Perm(); perm != 0o600 {
		t.Errorf("saved file permissions = %o, want 600", perm)
	}

	loaded, err := LoadTokenFromFile(path)
	if err != nil {
		t.Fatalf("LoadTokenFromFile returned error: %v", err)
	}
	if loaded.ClientID != "client" || loaded.ClientSecret != "secret" || loaded.SubscriptionKey != "subkey" {
		t.Errorf("loaded credentials = %+v", loaded)
	}
	if loaded.Grant.Kind() != GrantToken {
		t.Fatalf("loaded grant kind = %v, want token", loaded.Grant.Kind())
	}
	if loaded.Grant.AccessToken() != "tok" || loaded.Grant.RefreshToken() != "ref" {
		t.Errorf("loaded tokens = %q/%q", loaded.Grant.AccessToken(), loaded.Grant.RefreshToken())
	}
	if !loaded.Grant.ExpiresAt().Equal(expires) {
		t.Errorf("loaded expiry = %v, want %v", loaded.Grant.ExpiresAt(), expires)
	}
}

func TestLoadTokenFromMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadTokenFromFile(filepath.Join(t.TempDir(), "absent.json")); !os.IsNotExist(err) {
		t.Errorf("LoadTokenFromFile error = %v, want not-exist", err)
	}
}

func TestParseAuthorizationRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseAuthorization([]byte("{not json")); err == nil {
		t.Error("ParseAuthorization accepted malformed input")
	}
}
