package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/text"
	"github.com/slack-go/slack"
)

const (
	defaultNumericLimit    = 50
	defaultExpressionLimit = "1d"
	expressionPageSize     = 100
)

var ErrInvalidLimit = errors.New("invalid limit")

// HistoryArgs are shared by the history and replies tools. Channel accepts
// an ID or a #channel/@user_dm name. Limit is either a time expression
// (1d, 2w, 3m) or a plain message count; with a cursor the expression form
// still applies but a numeric count is ignored.
type HistoryArgs struct {
	Channel                 string
	ThreadTs                string // replies only
	Limit                   string
	Cursor                  string
	IncludeActivityMessages bool
}

// ConversationsHistory returns channel messages, newest first, with the
// pagination cursor threaded onto the last message.
func ConversationsHistory(ctx context.Context, api SlackAPI, c *cache.Cache, args HistoryArgs) (string, error) {
	channelID, err := c.ResolveChannelID(ctx, args.Channel)
	if err != nil {
		return "", fmt.Errorf("channel %q: %w", args.Channel, err)
	}

	count, oldest, latest, err := parseLimit(args.Limit, args.Cursor)
	if err != nil {
		return "", err
	}

	resp, err := api.History(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     count,
		Oldest:    oldest,
		Latest:    latest,
		Cursor:    args.Cursor,
		Inclusive: false,
	})
	if err != nil {
		return "", err
	}

	messages := convertHistoryMessages(resp.Messages, channelID, c, args.IncludeActivityMessages)
	if len(messages) > 0 && resp.HasMore && resp.ResponseMetaData.NextCursor != "" {
		messages[len(messages)-1].Cursor = resp.ResponseMetaData.NextCursor
	}

	return marshal(messages)
}

// ConversationsReplies returns a message thread by channel and thread_ts.
func ConversationsReplies(ctx context.Context, api SlackAPI, c *cache.Cache, args HistoryArgs) (string, error) {
	channelID, err := c.ResolveChannelID(ctx, args.Channel)
	if err != nil {
		return "", fmt.Errorf("channel %q: %w", args.Channel, err)
	}

	count, oldest, latest, err := parseLimit(args.Limit, args.Cursor)
	if err != nil {
		return "", err
	}

	raw, hasMore, nextCursor, err := api.Replies(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: args.ThreadTs,
		Limit:     count,
		Oldest:    oldest,
		Latest:    latest,
		Cursor:    args.Cursor,
		Inclusive: false,
	})
	if err != nil {
		return "", err
	}

	messages := convertHistoryMessages(raw, channelID, c, args.IncludeActivityMessages)
	if len(messages) > 0 && hasMore && nextCursor != "" {
		messages[len(messages)-1].Cursor = nextCursor
	}

	return marshal(messages)
}

// parseLimit resolves the limit argument into a page size and an optional
// oldest/latest window. Time expressions (Nd, Nw, Nm) translate to a window
// anchored at the start of today; anything else is a message count.
func parseLimit(limit, cursor string) (count int, oldest, latest string, err error) {
	return parseLimitAt(limit, cursor, time.Now().UTC())
}

func parseLimitAt(limit, cursor string, now time.Time) (int, string, string, error) {
	if limit == "" {
		limit = defaultExpressionLimit
	}

	switch limit[len(limit)-1] {
	case 'd', 'w', 'm':
		return limitByExpression(limit, now)
	}

	if cursor != "" {
		// Cursor pagination continues the previous window; a numeric
		// limit alongside it has nothing to anchor to.
		return 0, "", "", nil
	}

	n, err := strconv.Atoi(limit)
	if err != nil {
		return 0, "", "", fmt.Errorf("%w: %q", ErrInvalidLimit, limit)
	}
	return n, "", "", nil
}

func limitByExpression(limit string, now time.Time) (int, string, string, error) {
	if len(limit) < 2 {
		return 0, "", "", fmt.Errorf("%w: %q is too short", ErrInvalidLimit, limit)
	}

	n, err := strconv.Atoi(limit[:len(limit)-1])
	if err != nil || n <= 0 {
		return 0, "", "", fmt.Errorf("%w: %q must be a positive integer followed by 'd', 'w', or 'm'", ErrInvalidLimit, limit)
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var oldest time.Time
	switch limit[len(limit)-1] {
	case 'd':
		oldest = startOfToday.AddDate(0, 0, -(n - 1))
	case 'w':
		oldest = startOfToday.AddDate(0, 0, -(n*7 - 1))
	case 'm':
		oldest = startOfToday.AddDate(0, -n, 0)
	}

	return expressionPageSize,
		fmt.Sprintf("%d.000000", oldest.Unix()),
		fmt.Sprintf("%d.000000", now.Unix()),
		nil
}

// convertHistoryMessages flattens raw Slack messages. Activity subtypes
// (channel_join and friends) are dropped unless requested; bot messages
// keep their posted username when the user id resolves nowhere.
func convertHistoryMessages(raw []slack.Message, channelID string, c *cache.Cache, includeActivity bool) []Message {
	messages := make([]Message, 0, len(raw))

	for _, msg := range raw {
		if msg.SubType != "" && msg.SubType != "bot_message" && msg.SubType != "thread_broadcast" && !includeActivity {
			continue
		}

		userName, realName := userNames(c, msg.User)
		if userName == msg.User && msg.SubType == "bot_message" && msg.Username != "" {
			userName = msg.Username
			realName = msg.Username
		}

		ts, err := text.TimestampToRFC3339(msg.Timestamp)
		if err != nil {
			continue
		}

		fullText := msg.Text +
			text.AttachmentsToText(msg.Text, msg.Attachments) +
			text.BlocksToText(msg.Blocks)

		var reactions []string
		for _, r := range msg.Reactions {
			reactions = append(reactions, fmt.Sprintf("%s:%d", r.Name, r.Count))
		}

		botName := ""
		if msg.BotProfile != nil && msg.BotProfile.Name != "" {
			botName = text.WrapContent(msg.BotProfile.Name)
		}

		fileIDs := make([]string, 0, len(msg.Files))
		for _, f := range msg.Files {
			fileIDs = append(fileIDs, f.ID)
		}

		messages = append(messages, Message{
			MsgID:         msg.Timestamp,
			UserID:        msg.User,
			UserName:      text.WrapContent(userName),
			RealName:      text.WrapContent(realName),
			ChannelID:     channelID,
			ThreadTs:      msg.ThreadTimestamp,
			Text:          text.WrapContent(text.Process(fullText)),
			Time:          ts,
			Reactions:     strings.Join(reactions, "|"),
			BotName:       botName,
			FileCount:     len(msg.Files),
			AttachmentIDs: strings.Join(fileIDs, ","),
			HasMedia:      len(msg.Files) > 0,
		})
	}

	return messages
}

// userNames resolves a user id through the cache without suspending,
// falling back to the raw id for unknown users.
func userNames(c *cache.Cache, userID string) (string, string) {
	if u, ok := c.Users().Peek(userID); ok {
		name, realName := u.Name, u.RealName
		if name == "" {
			name = userID
		}
		if realName == "" {
			realName = userID
		}
		return name, realName
	}
	return userID, userID
}
