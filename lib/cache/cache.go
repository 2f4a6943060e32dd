// Package cache maintains the workspace reference data (users and channels)
// behind the Slack tools: an in-memory forward/inverse map pair per entity
// kind, backed by disk snapshots for warm starts and refreshed from the
// Slack API when stale.
package cache

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Channel is the flattened conversation record kept in the channels table.
// IMs and MPIMs live here alongside regular channels; their derived names
// carry an @ sigil instead of #.
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Purpose     string `json:"purpose"`
	MemberCount int    `json:"member_count"`
	IsIM        bool   `json:"is_im"`
	IsMPIM      bool   `json:"is_mpim"`
	IsPrivate   bool   `json:"is_private"`
	User        string `json:"user"`
}

// Source is the remote paging contract the cache consumes. The cache does
// not know about the transport behind it.
type Source interface {
	FetchUsersPage(ctx context.Context, cursor string) ([]slack.User, string, error)
	FetchChannelsPage(ctx context.Context, cursor string) ([]slack.Channel, string, error)
}

// Config carries the cache settings resolved by the configuration layer.
type Config struct {
	TTL          time.Duration
	UsersPath    string
	ChannelsPath string
}

// Cache owns the two reference tables. Construct one per process and pass
// it to consumers explicitly.
type Cache struct {
	users    *Table[slack.User]
	channels *Table[Channel]
}

func New(src Source, cfg Config) *Cache {
	c := &Cache{}

	c.users = NewTable(Options[slack.User]{
		Name:  "users",
		ID:    func(u slack.User) string { return u.ID },
		Key:   func(u slack.User) string { return u.Name },
		TTL:   cfg.TTL,
		Path:  cfg.UsersPath,
		Fetch: src.FetchUsersPage,
	})

	c.channels = NewTable(Options[Channel]{
		Name: "channels",
		ID:   func(ch Channel) string { return ch.ID },
		Key:  func(ch Channel) string { return ch.Name },
		TTL:  cfg.TTL,
		Path: cfg.ChannelsPath,
		Fetch: func(ctx context.Context, cursor string) ([]Channel, string, error) {
			raw, next, err := src.FetchChannelsPage(ctx, cursor)
			if err != nil {
				return nil, "", err
			}
			channels := make([]Channel, 0, len(raw))
			for _, ch := range raw {
				channels = append(channels, c.flatten(ch))
			}
			return channels, next, nil
		},
	})

	return c
}

// Users exposes the users table.
func (c *Cache) Users() *Table[slack.User] { return c.users }

// Channels exposes the channels table.
func (c *Cache) Channels() *Table[Channel] { return c.channels }

// Warm populates both tables at startup, users first so IM channel names
// can resolve through them. Stale disk snapshots are adopted and refreshed
// in the background rather than blocking startup.
func (c *Cache) Warm(ctx context.Context) error {
	if err := c.users.Warm(ctx); err != nil {
		return err
	}
	return c.channels.Warm(ctx)
}

// ResolveChannelID turns a user-supplied channel reference into a channel
// ID. References starting with # or @ go through the name index; anything
// else is assumed to already be an ID.
func (c *Cache) ResolveChannelID(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "#") && !strings.HasPrefix(ref, "@") {
		return ref, nil
	}
	ch, err := c.channels.GetByName(ctx, ref)
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

// ListUsers returns all cached users in load order.
func (c *Cache) ListUsers(ctx context.Context) (iter.Seq[slack.User], error) {
	return c.users.List(ctx)
}

// ListChannels returns all cached channels in load order.
func (c *Cache) ListChannels(ctx context.Context) (iter.Seq[Channel], error) {
	return c.channels.List(ctx)
}

// flatten maps a Slack conversation to the cached record, deriving the
// sigil-prefixed display name. IM names resolve the counterpart user
// through the users table when it is already populated.
func (c *Cache) flatten(ch slack.Channel) Channel {
	out := Channel{
		ID:          ch.ID,
		Topic:       ch.Topic.Value,
		Purpose:     ch.Purpose.Value,
		MemberCount: ch.NumMembers,
		IsIM:        ch.IsIM,
		IsMPIM:      ch.IsMpIM,
		IsPrivate:   ch.IsPrivate,
		User:        ch.User,
	}

	switch {
	case ch.IsIM:
		if u, ok := c.users.Peek(ch.User); ok && u.Name != "" {
			out.Name = "@" + u.Name
		} else {
			out.Name = "@" + ch.User
		}
	case ch.IsMpIM:
		out.Name = "@" + ch.Name
	default:
		if ch.Name != "" {
			out.Name = "#" + ch.Name
		}
	}

	return out
}
