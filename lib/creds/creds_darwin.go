//go:build darwin

package creds

import (
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keybase/go-keychain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/crypto/pbkdf2"
)

// Extract pulls the xoxc token and xoxd cookie for a workspace out of the
// local Slack desktop installation.
func Extract(workspace string) (*Credentials, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cookiePath, err := findCookieDB(home)
	if err != nil {
		return nil, err
	}

	key, err := cookieKey()
	if err != nil {
		return nil, fmt.Errorf("reading Slack Safe Storage key: %w", err)
	}

	cookie, err := authCookie(cookiePath, key)
	if err != nil {
		return nil, err
	}

	token, err := workspaceToken(filepath.Join(home, "Library/Application Support/Slack/Local Storage/leveldb"), workspace)
	if err != nil {
		return nil, err
	}

	return &Credentials{Workspace: workspace, Token: token, Cookie: cookie}, nil
}

// findCookieDB probes the known cookie database locations; the sandboxed
// App Store build keeps it under Containers.
func findCookieDB(home string) (string, error) {
	candidates := []string{
		filepath.Join(home, "Library/Application Support/Slack/Cookies"),
		filepath.Join(home, "Library/Containers/com.tinyspeck.slackmacgap/Data/Library/Application Support/Slack/Cookies"),
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			logrus.WithField("path", p).Debug("found cookie database")
			return p, nil
		}
	}
	return "", ErrNoCookieDB
}

// cookieKey derives the AES key from the Safe Storage password in the
// login keychain.
func cookieKey() ([]byte, error) {
	password, err := keychain.GetGenericPassword("Slack Safe Storage", "Slack Key", "", "")
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, cookieSalt, cookieIterations, cookieKeyLen, sha1.New), nil
}

// authCookie reads and decrypts the "d" cookie, which carries the xoxd
// value.
func authCookie(path string, key []byte) (string, error) {
	logrus.WithField("path", path).Debug("opening cookie database")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	version, err := cookieDBVersion(db)
	if err != nil {
		return "", err
	}

	query := "select name, encrypted_value from cookies where host_key like ?"
	for _, hostKey := range hostKeys("slack.com") {
		rows, err := db.Query(query, hostKey)
		if err != nil {
			return "", err
		}

		for rows.Next() {
			var name string
			var encrypted []byte
			if err := rows.Scan(&name, &encrypted); err != nil {
				rows.Close()
				return "", err
			}
			if name != "d" {
				continue
			}

			value, err := decryptCookie(encrypted, key)
			if err != nil {
				rows.Close()
				return "", err
			}

			// Database version 24 and later prefix the plaintext with a
			// SHA256 hash of the domain.
			// https://github.com/chromium/chromium/blob/280265158d778772c48206ffaea788c1030b9aaa/net/extras/sqlite/sqlite_persistent_cookie_store.cc#L223-L224
			if version >= 24 && len(value) > 32 {
				value = value[32:]
			}

			rows.Close()
			return value, nil
		}
		rows.Close()
	}

	return "", ErrNoCookie
}

func cookieDBVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("select value from meta where key = 'version'").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

type localConfig struct {
	Teams map[string]teamConfig `json:"teams"`
}

type teamConfig struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Token  string `json:"token"`
	Domain string `json:"domain"`
}

// workspaceToken digs the xoxc token for a workspace domain out of the
// desktop app's Local Storage leveldb.
func workspaceToken(path, workspace string) (string, error) {
	logrus.WithField("path", path).Debug("opening local config database")
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var cfg localConfig
	iter := db.NewIterator(nil, nil)
	for iter.Next() {
		if !strings.Contains(string(iter.Key()), "localConfig_v2") {
			continue
		}
		// Values carry a one-byte type prefix before the JSON.
		if err := json.Unmarshal(iter.Value()[1:], &cfg); err != nil {
			iter.Release()
			return "", err
		}
		break
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return "", err
	}

	for _, team := range cfg.Teams {
		if team.Domain == workspace {
			logrus.WithField("team", team.Name).Debug("matched workspace")
			return team.Token, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrNoToken, workspace)
}
