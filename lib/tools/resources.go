package tools

import (
	"context"

	"github.com/graytonio/slack-mcp/lib/cache"
)

// UsersResource renders the full user directory, for the workspace users
// resource.
func UsersResource(ctx context.Context, c *cache.Cache) (string, error) {
	seq, err := c.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	var users []UserInfo
	for u := range seq {
		if u.Deleted {
			continue
		}
		users = append(users, UserInfo{
			UserID:   u.ID,
			UserName: u.Name,
			RealName: u.RealName,
		})
	}

	return marshal(users)
}

// ChannelsResource renders the full channel directory, for the workspace
// channels resource.
func ChannelsResource(ctx context.Context, c *cache.Cache) (string, error) {
	seq, err := c.ListChannels(ctx)
	if err != nil {
		return "", err
	}

	var channels []ChannelInfo
	for ch := range seq {
		channels = append(channels, ChannelInfo{
			ID:          ch.ID,
			Name:        ch.Name,
			Topic:       ch.Topic,
			Purpose:     ch.Purpose,
			MemberCount: ch.MemberCount,
		})
	}

	return marshal(channels)
}
