// Package google handles Google OAuth credentials and tokens for the
// Calendar API.
//
// The user supplies their own OAuth client credentials (downloaded from
// the Google Cloud Console) through the gcal_setup_integration tool.
// Authorization uses the out-of-band flow: the user visits the auth URL
// in a browser and pastes the resulting code into gcal_save_auth_code.
// Credentials and tokens are stored as owner-only files in the data
// directory.
package google
