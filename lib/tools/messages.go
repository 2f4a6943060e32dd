package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

var (
	ErrAddMessageDisabled = errors.New(
		"by default, the conversations_add_message tool is disabled to guard Slack workspaces against accidental spamming. " +
			"To enable it, set the SLACK_MCP_ADD_MESSAGE_TOOL environment variable to true, 1, or a comma separated list of channels " +
			"to limit where the MCP can post messages, e.g. 'SLACK_MCP_ADD_MESSAGE_TOOL=C1234567890,D0987654321', " +
			"'SLACK_MCP_ADD_MESSAGE_TOOL=!C1234567890' to enable all except one or 'SLACK_MCP_ADD_MESSAGE_TOOL=true' for all channels and DMs")
	ErrChannelNotAllowed  = errors.New("tool is not allowed for this channel")
	ErrEmptyPayload       = errors.New("payload must not be empty")
	ErrInvalidThreadTs    = errors.New("thread_ts must be a valid timestamp in format 1234567890.123456")
	ErrInvalidContentType = errors.New("content_type must be either 'text/plain' or 'text/markdown'")
)

type AddMessageArgs struct {
	Channel     string
	Payload     string
	ThreadTs    string
	ContentType string // text/plain or text/markdown, defaults to markdown
}

// AddMessage posts a message to a channel or DM, gated by the add-message
// policy, and echoes the posted message back as the tool result.
func AddMessage(ctx context.Context, api SlackAPI, c *cache.Cache, cfg *config.Config, args AddMessageArgs) (string, error) {
	if cfg.AddMessageTool == "" {
		return "", ErrAddMessageDisabled
	}

	channelID, err := c.ResolveChannelID(ctx, args.Channel)
	if err != nil {
		return "", fmt.Errorf("channel %q: %w", args.Channel, err)
	}

	if !config.IsChannelAllowed(channelID, cfg.AddMessageTool) {
		return "", fmt.Errorf("%w: %s, applied policy: %s", ErrChannelNotAllowed, channelID, cfg.AddMessageTool)
	}

	if args.Payload == "" {
		return "", ErrEmptyPayload
	}
	if args.ThreadTs != "" && !strings.Contains(args.ThreadTs, ".") {
		return "", ErrInvalidThreadTs
	}

	contentType := args.ContentType
	if contentType == "" {
		contentType = "text/markdown"
	}
	if contentType != "text/plain" && contentType != "text/markdown" {
		return "", ErrInvalidContentType
	}

	opts := []slack.MsgOption{
		slack.MsgOptionText(args.Payload, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	}
	if args.ThreadTs != "" {
		opts = append(opts, slack.MsgOptionTS(args.ThreadTs))
	}
	if contentType == "text/plain" {
		opts = append(opts, slack.MsgOptionDisableMarkdown())
	}

	respChannel, respTs, err := api.PostMessage(ctx, channelID, opts...)
	if err != nil {
		return "", err
	}

	if cfg.AddMessageMark && respTs != "" {
		if err := api.MarkConversation(ctx, respChannel, respTs); err != nil {
			logrus.WithError(err).Warn("could not mark conversation as read")
		}
	}

	// Echo the message as Slack stored it.
	history, err := api.History(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: respChannel,
		Limit:     1,
		Oldest:    respTs,
		Latest:    respTs,
		Inclusive: true,
	})
	if err != nil {
		return "", err
	}

	return marshal(convertHistoryMessages(history.Messages, respChannel, c, true))
}
