//go:build !darwin

package creds

// Extract is only implemented for macOS.
func Extract(workspace string) (*Credentials, error) {
	return nil, ErrNotSupported
}
