package slackutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

const fetchPageSize = 200

// FetchUsersPage fetches one page of users.list. slack-go only exposes an
// auto-draining iterator for users, so this hits the endpoint directly to
// honor the cache's page-at-a-time contract.
func (c *Client) FetchUsersPage(ctx context.Context, cursor string) ([]slack.User, string, error) {
	query := url.Values{"limit": {fmt.Sprint(fetchPageSize)}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://slack.com/api/users.list?"+query.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var body struct {
		OK               bool         `json:"ok"`
		Error            string       `json:"error"`
		Members          []slack.User `json:"members"`
		ResponseMetadata struct {
			NextCursor string `json:"next_cursor"`
		} `json:"response_metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", err
	}
	if !body.OK {
		return nil, "", fmt.Errorf("users.list: %s", body.Error)
	}

	logrus.WithFields(logrus.Fields{"members": len(body.Members), "more": body.ResponseMetadata.NextCursor != ""}).Debug("fetched users page")
	return body.Members, body.ResponseMetadata.NextCursor, nil
}

// FetchChannelsPage fetches one page of conversations.list across all
// conversation types, IMs and MPIMs included.
func (c *Client) FetchChannelsPage(ctx context.Context, cursor string) ([]slack.Channel, string, error) {
	channels, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Types:  []string{"public_channel", "private_channel", "im", "mpim"},
		Limit:  fetchPageSize,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", err
	}

	logrus.WithFields(logrus.Fields{"channels": len(channels), "more": next != ""}).Debug("fetched channels page")
	return channels, next, nil
}
