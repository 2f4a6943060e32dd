// Package config resolves the server configuration from SLACK_MCP_*
// environment variables. All validation happens here: the rest of the
// process only ever sees a resolved Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const DefaultCacheTTL = time.Hour

var (
	ErrNoToken           = errors.New("set SLACK_MCP_XOXP_TOKEN, SLACK_MCP_XOXB_TOKEN, or both SLACK_MCP_XOXC_TOKEN and SLACK_MCP_XOXD_TOKEN")
	ErrPartialCookiePair = errors.New("SLACK_MCP_XOXC_TOKEN and SLACK_MCP_XOXD_TOKEN must both be set for cookie auth")
	ErrMixedPolicy       = errors.New("cannot mix allowed and disallowed (! prefixed) channels")
	ErrInvalidTTL        = errors.New("invalid cache TTL")
)

type Config struct {
	Token      string
	IsBotToken bool
	Cookie     string // xoxd browser cookie, set only for xoxc auth

	LogLevel string

	// Write-tool policies: empty disables the tool, "true"/"1" allows all
	// channels, otherwise a comma separated allow list or !-prefixed deny
	// list of channel IDs.
	AddMessageTool string
	ReactionTool   string
	AttachmentTool string

	AddMessageMark bool

	CacheTTL          time.Duration
	UsersCachePath    string
	ChannelsCachePath string
}

// Load reads and validates the environment. Any malformed setting is an
// error here, never later.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("slack_mcp")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	cfg := &Config{LogLevel: strings.ToLower(v.GetString("log_level"))}

	xoxp := v.GetString("xoxp_token")
	xoxb := v.GetString("xoxb_token")
	xoxc := v.GetString("xoxc_token")
	xoxd := v.GetString("xoxd_token")

	switch {
	case xoxp != "":
		cfg.Token = xoxp
	case xoxb != "":
		cfg.Token = xoxb
		cfg.IsBotToken = true
	case xoxc != "" && xoxd != "":
		cfg.Token = xoxc
		cfg.Cookie = xoxd
	case xoxc != "" || xoxd != "":
		return nil, ErrPartialCookiePair
	default:
		return nil, ErrNoToken
	}

	cfg.AddMessageTool = v.GetString("add_message_tool")
	if err := ValidateToolPolicy(cfg.AddMessageTool); err != nil {
		return nil, fmt.Errorf("SLACK_MCP_ADD_MESSAGE_TOOL: %w", err)
	}

	cfg.ReactionTool = v.GetString("reaction_tool")
	if err := ValidateToolPolicy(cfg.ReactionTool); err != nil {
		return nil, fmt.Errorf("SLACK_MCP_REACTION_TOOL: %w", err)
	}

	cfg.AttachmentTool = v.GetString("attachment_tool")

	mark := v.GetString("add_message_mark")
	cfg.AddMessageMark = mark == "true" || mark == "1" || mark == "yes"

	ttl, err := ParseTTL(v.GetString("cache_ttl"))
	if err != nil {
		return nil, fmt.Errorf("SLACK_MCP_CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	dir := cacheDir()
	cfg.UsersCachePath = v.GetString("users_cache")
	if cfg.UsersCachePath == "" && dir != "" {
		cfg.UsersCachePath = filepath.Join(dir, "users_cache.json")
	}
	cfg.ChannelsCachePath = v.GetString("channels_cache")
	if cfg.ChannelsCachePath == "" && dir != "" {
		cfg.ChannelsCachePath = filepath.Join(dir, "channels_cache.json")
	}

	return cfg, nil
}

// ApplyLogLevel configures logrus from the loaded log level.
func (c *Config) ApplyLogLevel() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// AuthMode names the authentication style in use, for startup logging.
func (c *Config) AuthMode() string {
	switch {
	case c.Cookie != "":
		return "cookie (xoxc)"
	case c.IsBotToken:
		return "bot"
	default:
		return "user"
	}
}

// ParseTTL parses the cache TTL setting: either a plain integer number of
// seconds or digits with a single s/m/h suffix, case-insensitive. Empty
// means the default. Negative plain values clamp to zero (never expires).
func ParseTTL(val string) (time.Duration, error) {
	if val == "" {
		return DefaultCacheTTL, nil
	}

	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, nil
	}

	if len(val) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, val)
	}

	n, err := strconv.Atoi(val[:len(val)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, val)
	}

	switch unit := val[len(val)-1]; unit {
	case 's', 'S':
		return time.Duration(n) * time.Second, nil
	case 'm', 'M':
		return time.Duration(n) * time.Minute, nil
	case 'h', 'H':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, val)
	}
}

// ValidateToolPolicy rejects policies that mix an allow list with
// !-prefixed deny entries.
func ValidateToolPolicy(policy string) error {
	if policy == "" || policy == "true" || policy == "1" {
		return nil
	}

	var hasNegated, hasPositive bool
	for _, item := range strings.Split(policy, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.HasPrefix(item, "!") {
			hasNegated = true
		} else {
			hasPositive = true
		}
	}

	if hasNegated && hasPositive {
		return ErrMixedPolicy
	}
	return nil
}

// IsChannelAllowed evaluates a write-tool policy for a channel. The first
// entry decides whether the list is an allow or a deny list.
func IsChannelAllowed(channelID, policy string) bool {
	if policy == "" || policy == "true" || policy == "1" {
		return true
	}

	items := strings.Split(policy, ",")
	negated := strings.HasPrefix(strings.TrimSpace(items[0]), "!")

	for _, item := range items {
		item = strings.TrimSpace(item)
		if negated {
			if strings.TrimPrefix(item, "!") == channelID {
				return false
			}
		} else if item == channelID {
			return true
		}
	}

	return negated
}

func cacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(base, "slack-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return dir
}
