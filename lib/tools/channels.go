package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/graytonio/slack-mcp/lib/cache"
)

var ErrInvalidChannelType = errors.New("invalid channel type")

// channelTypes are the filter values accepted by channels_list.
var channelTypes = map[string]func(cache.Channel) bool{
	"public_channel":  func(ch cache.Channel) bool { return !ch.IsIM && !ch.IsMPIM && !ch.IsPrivate },
	"private_channel": func(ch cache.Channel) bool { return ch.IsPrivate && !ch.IsIM && !ch.IsMPIM },
	"im":              func(ch cache.Channel) bool { return ch.IsIM },
	"mpim":            func(ch cache.Channel) bool { return ch.IsMPIM },
}

type ChannelsListArgs struct {
	Types  string // comma separated subset of public_channel,private_channel,im,mpim
	Sort   string // "popularity" sorts by member count descending
	Limit  int
	Cursor string
}

// ChannelsList returns the cached channel directory, filtered by type and
// paginated over a stable ID ordering so cursors stay valid across calls.
func ChannelsList(ctx context.Context, c *cache.Cache, args ChannelsListArgs) (string, error) {
	predicates, err := parseChannelTypes(args.Types)
	if err != nil {
		return "", err
	}

	seq, err := c.ListChannels(ctx)
	if err != nil {
		return "", err
	}

	var channels []cache.Channel
	for ch := range seq {
		for _, match := range predicates {
			if match(ch) {
				channels = append(channels, ch)
				break
			}
		}
	}

	// Cursors point at the last returned ID, so pagination needs an
	// ordering independent of the requested sort.
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })

	if args.Cursor != "" {
		lastID, err := decodeChannelCursor(args.Cursor)
		if err != nil {
			return "", err
		}
		idx := sort.Search(len(channels), func(i int) bool { return channels[i].ID > lastID })
		channels = channels[idx:]
	}

	limit := args.Limit
	if limit < 1 {
		limit = 100
	}
	if limit > 999 {
		limit = 999
	}

	hasMore := len(channels) > limit
	if hasMore {
		channels = channels[:limit]
	}

	if args.Sort == "popularity" {
		sort.SliceStable(channels, func(i, j int) bool {
			return channels[i].MemberCount > channels[j].MemberCount
		})
	}

	out := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ChannelInfo{
			ID:          ch.ID,
			Name:        ch.Name,
			Topic:       ch.Topic,
			Purpose:     ch.Purpose,
			MemberCount: ch.MemberCount,
		})
	}

	if hasMore && len(out) > 0 {
		last := channels[len(channels)-1].ID
		if args.Sort == "popularity" {
			// The cursor tracks position in ID order, not display order.
			for _, ch := range channels {
				if ch.ID > last {
					last = ch.ID
				}
			}
		}
		out[len(out)-1].Cursor = base64.StdEncoding.EncodeToString([]byte(last))
	}

	return marshal(out)
}

func parseChannelTypes(types string) ([]func(cache.Channel) bool, error) {
	if strings.TrimSpace(types) == "" {
		types = "public_channel"
	}

	var predicates []func(cache.Channel) bool
	for _, t := range strings.Split(types, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		match, ok := channelTypes[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q, expected public_channel, private_channel, im or mpim", ErrInvalidChannelType, t)
		}
		predicates = append(predicates, match)
	}
	return predicates, nil
}

func decodeChannelCursor(cursor string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return string(decoded), nil
}
