package mcpserver

import (
	"context"

	"github.com/graytonio/slack-mcp/lib/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("conversations_history",
		mcp.WithDescription("Get messages from a channel or DM by ID or name, newest first"),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Channel ID (C..., D..., G...) or name in #channel or @user_dm form")),
		mcp.WithString("limit",
			mcp.Description("Message count, or a time window like 1d, 2w, 3m (defaults to 1d)")),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from a previous call")),
		mcp.WithBoolean("include_activity_messages",
			mcp.Description("Include channel_join and similar activity messages")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.ConversationsHistory(ctx, s.api, s.cache, tools.HistoryArgs{
			Channel:                 req.GetString("channel_id", ""),
			Limit:                   req.GetString("limit", ""),
			Cursor:                  req.GetString("cursor", ""),
			IncludeActivityMessages: req.GetBool("include_activity_messages", false),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("conversations_replies",
		mcp.WithDescription("Get a thread of messages by channel and thread_ts"),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Channel ID or name in #channel or @user_dm form")),
		mcp.WithString("thread_ts", mcp.Required(),
			mcp.Description("Timestamp of the thread parent message, e.g. 1234567890.123456")),
		mcp.WithString("limit",
			mcp.Description("Message count, or a time window like 1d, 2w, 3m (defaults to 1d)")),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from a previous call")),
		mcp.WithBoolean("include_activity_messages",
			mcp.Description("Include channel_join and similar activity messages")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.ConversationsReplies(ctx, s.api, s.cache, tools.HistoryArgs{
			Channel:                 req.GetString("channel_id", ""),
			ThreadTs:                req.GetString("thread_ts", ""),
			Limit:                   req.GetString("limit", ""),
			Cursor:                  req.GetString("cursor", ""),
			IncludeActivityMessages: req.GetBool("include_activity_messages", false),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("conversations_search_messages",
		mcp.WithDescription("Search messages across the workspace with optional channel, user and date filters"),
		mcp.WithString("search_query",
			mcp.Description("Free text to search for; may embed Slack modifiers like in: or from:")),
		mcp.WithString("filter_in_channel",
			mcp.Description("Limit results to a channel, by #name or ID")),
		mcp.WithString("filter_in_im_or_mpim",
			mcp.Description("Limit results to a DM or group DM with a user, by @name or ID")),
		mcp.WithString("filter_users_with",
			mcp.Description("Only threads and DMs that include this user, by @name or ID")),
		mcp.WithString("filter_users_from",
			mcp.Description("Only messages posted by this user, by @name or ID")),
		mcp.WithString("filter_date_before",
			mcp.Description("Only messages before this date (YYYY-MM-DD, July 3, 2024, yesterday, ...)")),
		mcp.WithString("filter_date_after",
			mcp.Description("Only messages after this date")),
		mcp.WithString("filter_date_on",
			mcp.Description("Only messages on this exact date")),
		mcp.WithString("filter_date_during",
			mcp.Description("Only messages during a month or year, e.g. July 2024")),
		mcp.WithBoolean("filter_threads_only",
			mcp.Description("Only messages that are part of a thread")),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from a previous call")),
		mcp.WithNumber("limit",
			mcp.Description("Results per page, 1-100 (defaults to 20)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.SearchMessages(ctx, s.api, s.cache, s.cfg, tools.SearchArgs{
			Query:             req.GetString("search_query", ""),
			FilterInChannel:   req.GetString("filter_in_channel", ""),
			FilterInIMOrMPIM:  req.GetString("filter_in_im_or_mpim", ""),
			FilterUsersWith:   req.GetString("filter_users_with", ""),
			FilterUsersFrom:   req.GetString("filter_users_from", ""),
			FilterDateBefore:  req.GetString("filter_date_before", ""),
			FilterDateAfter:   req.GetString("filter_date_after", ""),
			FilterDateOn:      req.GetString("filter_date_on", ""),
			FilterDateDuring:  req.GetString("filter_date_during", ""),
			FilterThreadsOnly: req.GetBool("filter_threads_only", false),
			Cursor:            req.GetString("cursor", ""),
			Limit:             req.GetInt("limit", 20),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("conversations_add_message",
		mcp.WithDescription("Post a message to a channel, DM or thread. Disabled unless SLACK_MCP_ADD_MESSAGE_TOOL is set"),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Channel ID or name in #channel or @user_dm form")),
		mcp.WithString("payload", mcp.Required(),
			mcp.Description("Message text, in Slack markdown by default")),
		mcp.WithString("thread_ts",
			mcp.Description("Reply in this thread instead of posting to the channel")),
		mcp.WithString("content_type",
			mcp.Description("text/markdown (default) or text/plain")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.AddMessage(ctx, s.api, s.cache, s.cfg, tools.AddMessageArgs{
			Channel:     req.GetString("channel_id", ""),
			Payload:     req.GetString("payload", ""),
			ThreadTs:    req.GetString("thread_ts", ""),
			ContentType: req.GetString("content_type", ""),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("reactions_add",
		mcp.WithDescription("Add an emoji reaction to a message. Disabled unless SLACK_MCP_REACTION_TOOL is set"),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Channel ID or name in #channel or @user_dm form")),
		mcp.WithString("timestamp", mcp.Required(),
			mcp.Description("Timestamp of the message to react to")),
		mcp.WithString("emoji", mcp.Required(),
			mcp.Description("Emoji shortcode, with or without colons, e.g. thumbsup")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.AddReaction(ctx, s.api, s.cache, s.cfg, reactionArgs(req)))
	})

	s.mcp.AddTool(mcp.NewTool("reactions_remove",
		mcp.WithDescription("Remove an emoji reaction from a message. Disabled unless SLACK_MCP_REACTION_TOOL is set"),
		mcp.WithString("channel_id", mcp.Required(),
			mcp.Description("Channel ID or name in #channel or @user_dm form")),
		mcp.WithString("timestamp", mcp.Required(),
			mcp.Description("Timestamp of the message to remove the reaction from")),
		mcp.WithString("emoji", mcp.Required(),
			mcp.Description("Emoji shortcode, with or without colons")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.RemoveReaction(ctx, s.api, s.cache, s.cfg, reactionArgs(req)))
	})

	s.mcp.AddTool(mcp.NewTool("channels_list",
		mcp.WithDescription("List channels in the workspace from the local directory cache"),
		mcp.WithString("channel_types",
			mcp.Description("Comma separated: public_channel, private_channel, im, mpim (defaults to public_channel)")),
		mcp.WithString("sort",
			mcp.Description("Set to popularity to sort by member count")),
		mcp.WithNumber("limit",
			mcp.Description("Channels per page, up to 999 (defaults to 100)")),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from a previous call")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.ChannelsList(ctx, s.cache, tools.ChannelsListArgs{
			Types:  req.GetString("channel_types", ""),
			Sort:   req.GetString("sort", ""),
			Limit:  req.GetInt("limit", 0),
			Cursor: req.GetString("cursor", ""),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("users_search",
		mcp.WithDescription("Search workspace users by name, display name or email"),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Case-insensitive substring to match")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results, 1-100 (defaults to 10)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.UsersSearch(ctx, s.cache, tools.UsersSearchArgs{
			Query: req.GetString("query", ""),
			Limit: req.GetInt("limit", 0),
		}))
	})

	s.mcp.AddTool(mcp.NewTool("attachment_get_data",
		mcp.WithDescription("Download a file attached to a message. Disabled unless SLACK_MCP_ATTACHMENT_TOOL is set"),
		mcp.WithString("file_id", mcp.Required(),
			mcp.Description("Slack file ID, e.g. F1234567890")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.textResult(tools.AttachmentGetData(ctx, s.api, s.cfg, tools.AttachmentArgs{
			FileID: req.GetString("file_id", ""),
		}))
	})
}

func reactionArgs(req mcp.CallToolRequest) tools.ReactionArgs {
	return tools.ReactionArgs{
		Channel:   req.GetString("channel_id", ""),
		Timestamp: req.GetString("timestamp", ""),
		Emoji:     req.GetString("emoji", ""),
	}
}

// textResult maps a tool outcome onto the MCP result shape: tool failures
// travel as error results, not protocol errors.
func (s *Server) textResult(payload string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(payload), nil
}
