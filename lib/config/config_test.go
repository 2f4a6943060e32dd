package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", DefaultCacheTTL, false},
		{"3600", time.Hour, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"30s", 30 * time.Second, false},
		{"30S", 30 * time.Second, false},
		{"15m", 15 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"2H", 2 * time.Hour, false},
		{"h", 0, true},
		{"2d", 0, true},
		{"abc", 0, true},
		{"1.5h", 0, true},
		{"-2h", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTTL) {
					t.Fatalf("ParseTTL(%q) err = %v, want ErrInvalidTTL", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTTL(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTTL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateToolPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		wantErr bool
	}{
		{"empty", "", false},
		{"true", "true", false},
		{"one", "1", false},
		{"allow list", "C123,D456", false},
		{"deny list", "!C123,!D456", false},
		{"mixed", "C123,!D456", true},
		{"mixed with spaces", " !C123 , D456 ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToolPolicy(tt.policy)
			if tt.wantErr && !errors.Is(err, ErrMixedPolicy) {
				t.Errorf("ValidateToolPolicy(%q) = %v, want ErrMixedPolicy", tt.policy, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateToolPolicy(%q) = %v, want nil", tt.policy, err)
			}
		})
	}
}

func TestIsChannelAllowed(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		policy  string
		want    bool
	}{
		{"empty policy", "C1", "", true},
		{"all true", "C1", "true", true},
		{"all one", "C1", "1", true},
		{"in allow list", "C1", "C1,C2", true},
		{"not in allow list", "C3", "C1,C2", false},
		{"in deny list", "C1", "!C1,!C2", false},
		{"not in deny list", "C3", "!C1,!C2", true},
		{"allow list with spaces", "C2", "C1, C2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChannelAllowed(tt.channel, tt.policy); got != tt.want {
				t.Errorf("IsChannelAllowed(%q, %q) = %v, want %v", tt.channel, tt.policy, got, tt.want)
			}
		})
	}
}

func TestLoadTokenPrecedence(t *testing.T) {
	clear := func(t *testing.T) {
		t.Helper()
		for _, k := range []string{"SLACK_MCP_XOXP_TOKEN", "SLACK_MCP_XOXB_TOKEN", "SLACK_MCP_XOXC_TOKEN", "SLACK_MCP_XOXD_TOKEN"} {
			t.Setenv(k, "")
		}
	}

	t.Run("no token", func(t *testing.T) {
		clear(t)
		if _, err := Load(); !errors.Is(err, ErrNoToken) {
			t.Errorf("Load() = %v, want ErrNoToken", err)
		}
	})

	t.Run("xoxp wins", func(t *testing.T) {
		clear(t)
		t.Setenv("SLACK_MCP_XOXP_TOKEN", "xoxp-1")
		t.Setenv("SLACK_MCP_XOXB_TOKEN", "xoxb-1")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Token != "xoxp-1" || cfg.IsBotToken || cfg.Cookie != "" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("bot token", func(t *testing.T) {
		clear(t)
		t.Setenv("SLACK_MCP_XOXB_TOKEN", "xoxb-1")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Token != "xoxb-1" || !cfg.IsBotToken {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("cookie pair", func(t *testing.T) {
		clear(t)
		t.Setenv("SLACK_MCP_XOXC_TOKEN", "xoxc-1")
		t.Setenv("SLACK_MCP_XOXD_TOKEN", "d-cookie")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Token != "xoxc-1" || cfg.Cookie != "d-cookie" || cfg.AuthMode() != "cookie (xoxc)" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("half a cookie pair is fatal", func(t *testing.T) {
		clear(t)
		t.Setenv("SLACK_MCP_XOXC_TOKEN", "xoxc-1")
		if _, err := Load(); !errors.Is(err, ErrPartialCookiePair) {
			t.Errorf("Load() = %v, want ErrPartialCookiePair", err)
		}
	})

	t.Run("malformed ttl is fatal", func(t *testing.T) {
		clear(t)
		t.Setenv("SLACK_MCP_XOXP_TOKEN", "xoxp-1")
		t.Setenv("SLACK_MCP_CACHE_TTL", "soon")
		if _, err := Load(); !errors.Is(err, ErrInvalidTTL) {
			t.Errorf("Load() = %v, want ErrInvalidTTL", err)
		}
	})
}
