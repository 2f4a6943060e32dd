package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
)

func tsString(t time.Time) string {
	return fmt.Sprintf("%d.000000", t.Unix())
}

func TestParseLimitAt(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	startOfToday := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		limit      string
		cursor     string
		wantCount  int
		wantOldest string
		wantErr    bool
	}{
		{name: "numeric", limit: "30", wantCount: 30},
		{name: "empty defaults to one day", limit: "", wantCount: expressionPageSize,
			wantOldest: tsString(startOfToday)},
		{name: "days", limit: "3d", wantCount: expressionPageSize,
			wantOldest: tsString(startOfToday.AddDate(0, 0, -2))},
		{name: "weeks", limit: "2w", wantCount: expressionPageSize,
			wantOldest: tsString(startOfToday.AddDate(0, 0, -13))},
		{name: "months", limit: "1m", wantCount: expressionPageSize,
			wantOldest: tsString(startOfToday.AddDate(0, -1, 0))},
		{name: "numeric with cursor is ignored", limit: "30", cursor: "abc", wantCount: 0},
		{name: "expression with cursor still applies", limit: "1d", cursor: "abc",
			wantCount: expressionPageSize, wantOldest: tsString(startOfToday)},
		{name: "garbage", limit: "soon", wantErr: true},
		{name: "zero expression", limit: "0d", wantErr: true},
		{name: "bare suffix", limit: "d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, oldest, _, err := parseLimitAt(tt.limit, tt.cursor, now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLimit) {
					t.Fatalf("err = %v, want ErrInvalidLimit", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
			if oldest != tt.wantOldest {
				t.Errorf("oldest = %q, want %q", oldest, tt.wantOldest)
			}
		})
	}
}

func TestConversationsHistory(t *testing.T) {
	src := &fakeSource{
		users:    []slack.User{testUser("U001", "alice", "Alice Liddell")},
		channels: []slack.Channel{testConversation("C001", "general", nil)},
	}
	c := testCache(t, src)

	api := &fakeAPI{history: &slack.GetConversationHistoryResponse{
		HasMore: true,
		Messages: []slack.Message{
			historyMessage("1700000002.000100", "U001", "second", nil),
			historyMessage("1700000001.000100", "U001", "joined", func(m *slack.Message) {
				m.SubType = "channel_join"
			}),
			historyMessage("1700000000.000100", "U001", "first", func(m *slack.Message) {
				m.Reactions = []slack.ItemReaction{{Name: "thumbsup", Count: 2}}
			}),
		},
	}}
	api.history.ResponseMetaData.NextCursor = "next-page"

	out, err := ConversationsHistory(context.Background(), api, c, HistoryArgs{Channel: "#general", Limit: "10"})
	if err != nil {
		t.Fatal(err)
	}

	if api.historyParams.ChannelID != "C001" {
		t.Errorf("channel id = %q, want C001", api.historyParams.ChannelID)
	}

	messages := decodeMessages(t, out)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2 (activity filtered)", len(messages))
	}
	if !strings.Contains(messages[0].UserName, "alice") || !strings.Contains(messages[0].RealName, "Alice Liddell") {
		t.Errorf("resolved names = %q / %q", messages[0].UserName, messages[0].RealName)
	}
	if !strings.Contains(messages[1].Reactions, "thumbsup:2") {
		t.Errorf("reactions = %q", messages[1].Reactions)
	}
	if messages[0].Cursor != "" {
		t.Error("cursor on a non-final message")
	}
	if messages[len(messages)-1].Cursor != "next-page" {
		t.Errorf("cursor = %q, want next-page", messages[len(messages)-1].Cursor)
	}
}

func TestConversationsHistoryIncludesActivityWhenAsked(t *testing.T) {
	src := &fakeSource{channels: []slack.Channel{testConversation("C001", "general", nil)}}
	c := testCache(t, src)

	api := &fakeAPI{history: &slack.GetConversationHistoryResponse{
		Messages: []slack.Message{
			historyMessage("1700000001.000100", "U001", "joined", func(m *slack.Message) {
				m.SubType = "channel_join"
			}),
		},
	}}

	out, err := ConversationsHistory(context.Background(), api, c, HistoryArgs{
		Channel: "C001", Limit: "10", IncludeActivityMessages: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeMessages(t, out); len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
}

func TestConversationsHistoryBotUsernameFallback(t *testing.T) {
	src := &fakeSource{channels: []slack.Channel{testConversation("C001", "general", nil)}}
	c := testCache(t, src)

	api := &fakeAPI{history: &slack.GetConversationHistoryResponse{
		Messages: []slack.Message{
			historyMessage("1700000001.000100", "", "deploy done", func(m *slack.Message) {
				m.SubType = "bot_message"
				m.Username = "deploybot"
			}),
		},
	}}

	out, err := ConversationsHistory(context.Background(), api, c, HistoryArgs{Channel: "C001", Limit: "1"})
	if err != nil {
		t.Fatal(err)
	}
	messages := decodeMessages(t, out)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if !strings.Contains(messages[0].UserName, "deploybot") {
		t.Errorf("userName = %q, want the posted bot username", messages[0].UserName)
	}
}

func TestConversationsReplies(t *testing.T) {
	src := &fakeSource{channels: []slack.Channel{testConversation("C001", "general", nil)}}
	c := testCache(t, src)

	api := &fakeAPI{replies: []slack.Message{
		historyMessage("1700000000.000100", "U001", "root", func(m *slack.Message) {
			m.ThreadTimestamp = "1700000000.000100"
		}),
		historyMessage("1700000001.000100", "U002", "reply", func(m *slack.Message) {
			m.ThreadTimestamp = "1700000000.000100"
		}),
	}}

	out, err := ConversationsReplies(context.Background(), api, c, HistoryArgs{
		Channel: "#general", ThreadTs: "1700000000.000100", Limit: "10",
	})
	if err != nil {
		t.Fatal(err)
	}
	messages := decodeMessages(t, out)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[1].ThreadTs != "1700000000.000100" {
		t.Errorf("threadTs = %q", messages[1].ThreadTs)
	}
}

func TestConversationsHistoryUnknownChannel(t *testing.T) {
	src := &fakeSource{channels: []slack.Channel{testConversation("C001", "general", nil)}}
	c := testCache(t, src)

	_, err := ConversationsHistory(context.Background(), &fakeAPI{}, c, HistoryArgs{Channel: "#missing", Limit: "10"})
	if err == nil {
		t.Fatal("expected an error for an unknown channel name")
	}
}
