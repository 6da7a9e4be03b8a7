package google

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCredentials = `{
  "installed": {
    "client_id": "test-client-id.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["urn:ietf:wg:oauth:2.0:oob"]
  }
}`

func TestCredentialStore_SaveCredentials(t *testing.T) {
	store := NewCredentialStore(t.TempDir())

	if store.HasCredentials() {
		t.Error("expected no credentials in fresh store")
	}

	if err := store.SaveCredentials(testCredentials); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	if !store.HasCredentials() {
		t.Error("expected credentials after save")
	}

	info, err := os.Stat(filepath.Join(store.dir, credentialsFileName))
	if err != nil {
		t.Fatalf("stat credentials file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestCredentialStore_SaveCredentialsRejectsGarbage(t *testing.T) {
	store := NewCredentialStore(t.TempDir())

	if err := store.SaveCredentials("not json"); err == nil {
		t.Error("expected error for malformed credentials")
	}
	if err := store.SaveCredentials(`{"web": {}}`); err == nil {
		t.Error("expected error for credentials without client id")
	}
	if store.HasCredentials() {
		t.Error("invalid credentials must not be persisted")
	}
}

func TestCredentialStore_GetAuthURL(t *testing.T) {
	store := NewCredentialStore(t.TempDir())

	if _, err := store.GetAuthURL(); err == nil {
		t.Error("expected error before credentials are saved")
	}

	if err := store.SaveCredentials(testCredentials); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	url, err := store.GetAuthURL()
	if err != nil {
		t.Fatalf("GetAuthURL failed: %v", err)
	}

	if !strings.Contains(url, "test-client-id") {
		t.Errorf("expected client id in auth URL, got %q", url)
	}
	if !strings.Contains(url, "calendar") {
		t.Errorf("expected calendar scope in auth URL, got %q", url)
	}
	if !strings.Contains(url, "access_type=offline") {
		t.Errorf("expected offline access in auth URL, got %q", url)
	}
}

func TestCredentialStore_TokenLifecycle(t *testing.T) {
	store := NewCredentialStore(t.TempDir())

	if store.HasToken() {
		t.Error("expected no token in fresh store")
	}

	if _, err := store.TokenSource(t.Context()); err == nil {
		t.Error("expected error when no token stored")
	}

	if err := store.SaveCredentials(testCredentials); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	// A stored token should round-trip into a token source
	tokenJSON := `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expiry":"2099-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(store.dir, tokenFileName), []byte(tokenJSON), 0600); err != nil {
		t.Fatalf("write token: %v", err)
	}

	if !store.HasToken() {
		t.Error("expected token after write")
	}

	ts, err := store.TokenSource(t.Context())
	if err != nil {
		t.Fatalf("TokenSource failed: %v", err)
	}

	token, err := ts.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token.AccessToken != "at" {
		t.Errorf("expected access token 'at', got %q", token.AccessToken)
	}
}

func TestCredentialStore_SaveTokenRequiresCode(t *testing.T) {
	store := NewCredentialStore(t.TempDir())

	if err := store.SaveToken(t.Context(), ""); err == nil {
		t.Error("expected error for empty auth code")
	}
}
