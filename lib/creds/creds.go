// Package creds extracts an xoxc token and xoxd cookie pair from a local
// Slack desktop installation, for workspaces where no API token can be
// provisioned. Only macOS is supported: the desktop app stores its cookie
// database and local config in well-known paths there, with the encryption
// password in the login keychain.
package creds

import "errors"

// Credentials is a browser-style token pair usable with cookie auth.
type Credentials struct {
	Workspace string
	Token     string // xoxc user token
	Cookie    string // xoxd browser cookie
}

var (
	ErrNotSupported = errors.New("credential extraction is only supported on macOS")
	ErrNoCookieDB   = errors.New("could not find the Slack cookie database")
	ErrNoCookie     = errors.New("no Slack auth cookie found, sign in to the Slack desktop app first")
	ErrNoToken      = errors.New("no user token found for workspace")
)
