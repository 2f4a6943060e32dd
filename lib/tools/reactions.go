package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/kyokomi/emoji/v2"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

var (
	ErrReactionsDisabled = errors.New(
		"by default, the reactions tools are disabled to guard Slack workspaces against accidental spamming. " +
			"To enable them, set the SLACK_MCP_REACTION_TOOL environment variable to true, 1, or a comma separated list of channels " +
			"to limit where the MCP can manage reactions, e.g. 'SLACK_MCP_REACTION_TOOL=C1234567890,D0987654321', " +
			"'SLACK_MCP_REACTION_TOOL=!C1234567890' to enable all except one or 'SLACK_MCP_REACTION_TOOL=true' for all channels and DMs")
	ErrMissingChannel   = errors.New("channel_id is required")
	ErrMissingTimestamp = errors.New("timestamp is required")
	ErrMissingEmoji     = errors.New("emoji is required")
)

type ReactionArgs struct {
	Channel   string
	Timestamp string
	Emoji     string // shortcode, with or without colons
}

// AddReaction adds an emoji reaction to a message, gated by the reaction
// policy.
func AddReaction(ctx context.Context, api SlackAPI, c *cache.Cache, cfg *config.Config, args ReactionArgs) (string, error) {
	channelID, name, err := prepareReaction(ctx, c, cfg, args)
	if err != nil {
		return "", err
	}

	if err := api.AddReaction(ctx, name, slack.ItemRef{Channel: channelID, Timestamp: args.Timestamp}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully added :%s: reaction to message %s in channel %s", name, args.Timestamp, channelID), nil
}

// RemoveReaction removes an emoji reaction from a message.
func RemoveReaction(ctx context.Context, api SlackAPI, c *cache.Cache, cfg *config.Config, args ReactionArgs) (string, error) {
	channelID, name, err := prepareReaction(ctx, c, cfg, args)
	if err != nil {
		return "", err
	}

	if err := api.RemoveReaction(ctx, name, slack.ItemRef{Channel: channelID, Timestamp: args.Timestamp}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully removed :%s: reaction from message %s in channel %s", name, args.Timestamp, channelID), nil
}

func prepareReaction(ctx context.Context, c *cache.Cache, cfg *config.Config, args ReactionArgs) (string, string, error) {
	if cfg.ReactionTool == "" {
		return "", "", ErrReactionsDisabled
	}
	if args.Channel == "" {
		return "", "", ErrMissingChannel
	}
	if args.Timestamp == "" {
		return "", "", ErrMissingTimestamp
	}

	name := strings.Trim(args.Emoji, ":")
	if name == "" {
		return "", "", ErrMissingEmoji
	}

	// Unknown shortcodes may still be custom workspace emoji, so only warn.
	if !isStandardEmoji(name) {
		logrus.WithField("emoji", name).Debug("not a standard emoji shortcode, assuming custom workspace emoji")
	}

	channelID, err := c.ResolveChannelID(ctx, args.Channel)
	if err != nil {
		return "", "", fmt.Errorf("channel %q: %w", args.Channel, err)
	}

	if !config.IsChannelAllowed(channelID, cfg.ReactionTool) {
		return "", "", fmt.Errorf("%w: %s, applied policy: %s", ErrChannelNotAllowed, channelID, cfg.ReactionTool)
	}

	return channelID, name, nil
}

func isStandardEmoji(name string) bool {
	code := ":" + name + ":"
	_, ok := emoji.CodeMap()[code]
	return ok
}
