// Package tools implements the operations exposed to the tool-calling
// agent. Every operation returns a JSON payload and consumes the Slack API
// through a narrow interface plus the reference cache, both passed
// explicitly.
package tools

import (
	"context"
	"encoding/json"

	"github.com/slack-go/slack"
)

// SlackAPI is the slice of the Slack client the tools consume.
// slackutils.Client satisfies it; tests substitute fakes.
type SlackAPI interface {
	History(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	Replies(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	SearchMessages(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
	PostMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (string, string, error)
	MarkConversation(ctx context.Context, channel, ts string) error
	AddReaction(ctx context.Context, name string, item slack.ItemRef) error
	RemoveReaction(ctx context.Context, name string, item slack.ItemRef) error
	FileInfo(ctx context.Context, fileID string) (*slack.File, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// Message is the flattened message record returned by the conversation and
// search tools. Field names are part of the tool contract.
type Message struct {
	MsgID         string `json:"msgID"`
	UserID        string `json:"userID"`
	UserName      string `json:"userName"`
	RealName      string `json:"realName"`
	ChannelID     string `json:"channelID"`
	ThreadTs      string `json:"threadTs,omitempty"`
	Text          string `json:"text"`
	Time          string `json:"time"`
	Reactions     string `json:"reactions,omitempty"`
	BotName       string `json:"botName,omitempty"`
	FileCount     int    `json:"fileCount,omitempty"`
	AttachmentIDs string `json:"attachmentIDs,omitempty"`
	HasMedia      bool   `json:"hasMedia,omitempty"`
	Cursor        string `json:"cursor,omitempty"`
}

type ChannelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Topic       string `json:"topic,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	MemberCount int    `json:"memberCount"`
	Cursor      string `json:"cursor,omitempty"`
}

type UserInfo struct {
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
	RealName string `json:"realName"`
}

type UserSearchResult struct {
	UserID      string `json:"userID"`
	UserName    string `json:"userName"`
	RealName    string `json:"realName"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Title       string `json:"title,omitempty"`
	DMChannelID string `json:"dmChannelID,omitempty"`
}

type AttachmentResult struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
