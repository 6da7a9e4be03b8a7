package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

const (
	credentialsFileName = "credentials.json"
	tokenFileName       = "token.json"

	// Out-of-band redirect: the user pastes the code back into the
	// gcal_save_auth_code tool instead of us running a local callback
	// server.
	oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"
)

// CredentialStore manages the Google OAuth client credentials and the
// user's token on disk. Both live in the data directory with owner-only
// permissions.
type CredentialStore struct {
	dir string
}

// NewCredentialStore creates a CredentialStore rooted at the given data
// directory.
func NewCredentialStore(dataDir string) *CredentialStore {
	return &CredentialStore{dir: dataDir}
}

// SaveCredentials validates and persists an OAuth client credentials JSON
// as downloaded from the Google Cloud Console.
func (s *CredentialStore) SaveCredentials(credentialsJSON string) error {
	// Parse before persisting so a malformed paste fails loudly now
	// rather than on the first sync
	if _, err := google.ConfigFromJSON([]byte(credentialsJSON), calendar.CalendarScope); err != nil {
		return fmt.Errorf("invalid OAuth client credentials: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(s.dir, credentialsFileName)
	if err := os.WriteFile(path, []byte(credentialsJSON), 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// HasCredentials reports whether OAuth client credentials have been saved.
func (s *CredentialStore) HasCredentials() bool {
	_, err := os.Stat(filepath.Join(s.dir, credentialsFileName))
	return err == nil
}

// HasToken reports whether a user token has been obtained.
func (s *CredentialStore) HasToken() bool {
	_, err := os.Stat(filepath.Join(s.dir, tokenFileName))
	return err == nil
}

// GetAuthURL returns the URL the user must visit to authorize calendar
// access.
func (s *CredentialStore) GetAuthURL() (string, error) {
	conf, err := s.oauthConfig()
	if err != nil {
		return "", err
	}

	return conf.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		// Force the consent screen so Google issues a refresh token even
		// if the user authorized before
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// SaveToken exchanges an authorization code for tokens and saves them.
func (s *CredentialStore) SaveToken(ctx context.Context, authCode string) error {
	if authCode == "" {
		return fmt.Errorf("authorization code cannot be empty")
	}

	conf, err := s.oauthConfig()
	if err != nil {
		return err
	}

	token, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(s.dir, tokenFileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// TokenSource returns an OAuth2 token source backed by the stored token.
// The source refreshes the access token as needed.
func (s *CredentialStore) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := s.oauthConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, tokenFileName))
	if err != nil {
		return nil, fmt.Errorf("no Google OAuth token found; run gcal_setup_integration and gcal_save_auth_code first")
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse stored token: %w", err)
	}

	return conf.TokenSource(ctx, &token), nil
}

// oauthConfig builds the OAuth2 configuration from the stored client
// credentials.
func (s *CredentialStore) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, credentialsFileName))
	if err != nil {
		return nil, fmt.Errorf("no OAuth client credentials found; run gcal_setup_integration first")
	}

	conf, err := google.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("invalid stored OAuth client credentials: %w", err)
	}

	conf.RedirectURL = oobRedirectURL
	return conf, nil
}
