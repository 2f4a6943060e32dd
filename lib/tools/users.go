package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/graytonio/slack-mcp/lib/cache"
)

var ErrEmptySearchQuery = errors.New("query is required")

type UsersSearchArgs struct {
	Query string
	Limit int
}

// UsersSearch matches the query as a case-insensitive substring against
// user names, real names, display names and email addresses. Deleted users
// are skipped. Each hit carries the DM channel id when one already exists.
func UsersSearch(ctx context.Context, c *cache.Cache, args UsersSearchArgs) (string, error) {
	query := strings.ToLower(strings.TrimSpace(args.Query))
	if query == "" {
		return "", ErrEmptySearchQuery
	}

	limit := args.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	seq, err := c.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	results := make([]UserSearchResult, 0, limit)
	for u := range seq {
		if u.Deleted {
			continue
		}

		if !strings.Contains(strings.ToLower(u.Name), query) &&
			!strings.Contains(strings.ToLower(u.RealName), query) &&
			!strings.Contains(strings.ToLower(u.Profile.DisplayName), query) &&
			!strings.Contains(strings.ToLower(u.Profile.Email), query) {
			continue
		}

		results = append(results, UserSearchResult{
			UserID:      u.ID,
			UserName:    u.Name,
			RealName:    u.RealName,
			DisplayName: u.Profile.DisplayName,
			Email:       u.Profile.Email,
			Title:       u.Profile.Title,
			DMChannelID: dmChannelFor(ctx, c, u.ID),
		})
		if len(results) == limit {
			break
		}
	}

	return marshal(results)
}

// dmChannelFor finds an existing IM channel with the user, if the
// workspace token has one open.
func dmChannelFor(ctx context.Context, c *cache.Cache, userID string) string {
	seq, err := c.ListChannels(ctx)
	if err != nil {
		return ""
	}
	for ch := range seq {
		if ch.IsIM && ch.User == userID {
			return ch.ID
		}
	}
	return ""
}
