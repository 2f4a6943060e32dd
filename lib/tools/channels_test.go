package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/slack-go/slack"
)

func channelsSource(n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("C%03d", i)
		name := fmt.Sprintf("chan-%03d", i)
		members := i
		src.channels = append(src.channels, testConversation(id, name, func(ch *slack.Channel) {
			ch.NumMembers = members
		}))
	}
	return src
}

func decodeChannels(t *testing.T, payload string) []ChannelInfo {
	t.Helper()
	var channels []ChannelInfo
	if err := json.Unmarshal([]byte(payload), &channels); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	return channels
}

func TestChannelsListTypeFilter(t *testing.T) {
	src := &fakeSource{channels: []slack.Channel{
		testConversation("C001", "general", nil),
		testConversation("C002", "secret", func(ch *slack.Channel) { ch.IsPrivate = true }),
		testConversation("D001", "", func(ch *slack.Channel) {
			ch.IsIM = true
			ch.User = "U001"
		}),
		testConversation("G001", "mpdm-a--b-1", func(ch *slack.Channel) { ch.IsMpIM = true }),
	}}
	c := testCache(t, src)
	ctx := context.Background()

	tests := []struct {
		types string
		want  []string
	}{
		{"", []string{"C001"}},
		{"public_channel", []string{"C001"}},
		{"private_channel", []string{"C002"}},
		{"im", []string{"D001"}},
		{"mpim", []string{"G001"}},
		{"public_channel,im", []string{"C001", "D001"}},
	}
	for _, tt := range tests {
		out, err := ChannelsList(ctx, c, ChannelsListArgs{Types: tt.types})
		if err != nil {
			t.Fatalf("types %q: %v", tt.types, err)
		}
		channels := decodeChannels(t, out)
		if len(channels) != len(tt.want) {
			t.Fatalf("types %q returned %d channels, want %d", tt.types, len(channels), len(tt.want))
		}
		for i, id := range tt.want {
			if channels[i].ID != id {
				t.Errorf("types %q [%d] = %q, want %q", tt.types, i, channels[i].ID, id)
			}
		}
	}

	if _, err := ChannelsList(ctx, c, ChannelsListArgs{Types: "direct_message"}); !errors.Is(err, ErrInvalidChannelType) {
		t.Errorf("invalid type err = %v", err)
	}
}

func TestChannelsListPagination(t *testing.T) {
	c := testCache(t, channelsSource(250))
	ctx := context.Background()

	var seen []string
	cursor := ""
	pages := 0
	for {
		out, err := ChannelsList(ctx, c, ChannelsListArgs{Cursor: cursor})
		if err != nil {
			t.Fatal(err)
		}
		channels := decodeChannels(t, out)
		if len(channels) == 0 {
			break
		}
		for _, ch := range channels {
			seen = append(seen, ch.ID)
		}
		pages++
		cursor = channels[len(channels)-1].Cursor
		if cursor == "" {
			break
		}
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if pages != 3 {
		t.Errorf("walked %d pages, want 3", pages)
	}
	if len(seen) != 250 {
		t.Fatalf("saw %d channels, want 250", len(seen))
	}
	unique := make(map[string]bool, len(seen))
	for _, id := range seen {
		if unique[id] {
			t.Fatalf("channel %s returned twice", id)
		}
		unique[id] = true
	}
}

func TestChannelsListPopularitySort(t *testing.T) {
	c := testCache(t, channelsSource(5))

	out, err := ChannelsList(context.Background(), c, ChannelsListArgs{Sort: "popularity"})
	if err != nil {
		t.Fatal(err)
	}
	channels := decodeChannels(t, out)
	for i := 1; i < len(channels); i++ {
		if channels[i].MemberCount > channels[i-1].MemberCount {
			t.Fatalf("not sorted by member count: %+v", channels)
		}
	}
}

func TestChannelsListLimitClamp(t *testing.T) {
	c := testCache(t, channelsSource(150))

	out, err := ChannelsList(context.Background(), c, ChannelsListArgs{Limit: -5})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(decodeChannels(t, out)); got != 100 {
		t.Errorf("default limit returned %d, want 100", got)
	}

	out, err = ChannelsList(context.Background(), c, ChannelsListArgs{Limit: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(decodeChannels(t, out)); got != 150 {
		t.Errorf("clamped limit returned %d, want all 150", got)
	}
}
