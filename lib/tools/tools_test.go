package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/slack-go/slack"
)

type fakeSource struct {
	users    []slack.User
	channels []slack.Channel
}

func (s *fakeSource) FetchUsersPage(ctx context.Context, cursor string) ([]slack.User, string, error) {
	return s.users, "", nil
}

func (s *fakeSource) FetchChannelsPage(ctx context.Context, cursor string) ([]slack.Channel, string, error) {
	return s.channels, "", nil
}

// fakeAPI implements SlackAPI with canned responses and records the calls
// it receives.
type fakeAPI struct {
	history       *slack.GetConversationHistoryResponse
	historyParams *slack.GetConversationHistoryParameters
	historyErr    error

	replies []slack.Message

	search      *slack.SearchMessages
	searchQuery string

	postedChannel string
	postedTs      string
	postErr       error

	marked bool

	reactions []string

	file     *slack.File
	fileData []byte
}

func (f *fakeAPI) History(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	f.historyParams = params
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.history == nil {
		return &slack.GetConversationHistoryResponse{}, nil
	}
	return f.history, nil
}

func (f *fakeAPI) Replies(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	return f.replies, false, "", nil
}

func (f *fakeAPI) SearchMessages(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	f.searchQuery = query
	if f.search == nil {
		return &slack.SearchMessages{}, nil
	}
	return f.search, nil
}

func (f *fakeAPI) PostMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (string, string, error) {
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.postedChannel = channelID
	f.postedTs = "1700000000.000100"
	return f.postedChannel, f.postedTs, nil
}

func (f *fakeAPI) MarkConversation(ctx context.Context, channel, ts string) error {
	f.marked = true
	return nil
}

func (f *fakeAPI) AddReaction(ctx context.Context, name string, item slack.ItemRef) error {
	f.reactions = append(f.reactions, name)
	return nil
}

func (f *fakeAPI) RemoveReaction(ctx context.Context, name string, item slack.ItemRef) error {
	f.reactions = append(f.reactions, "-"+name)
	return nil
}

func (f *fakeAPI) FileInfo(ctx context.Context, fileID string) (*slack.File, error) {
	return f.file, nil
}

func (f *fakeAPI) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	return f.fileData, nil
}

func testUser(id, name, realName string) slack.User {
	return slack.User{ID: id, Name: name, RealName: realName}
}

func testConversation(id, name string, mut func(*slack.Channel)) slack.Channel {
	ch := slack.Channel{}
	ch.ID = id
	ch.Name = name
	if mut != nil {
		mut(&ch)
	}
	return ch
}

func testCache(t *testing.T, src *fakeSource) *cache.Cache {
	t.Helper()
	c := cache.New(src, cache.Config{TTL: time.Hour})
	if err := c.Warm(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c
}

func historyMessage(ts, user, text string, mut func(*slack.Message)) slack.Message {
	msg := slack.Message{Msg: slack.Msg{Timestamp: ts, User: user, Text: text}}
	if mut != nil {
		mut(&msg)
	}
	return msg
}

func decodeMessages(t *testing.T, payload string) []Message {
	t.Helper()
	var messages []Message
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	return messages
}
