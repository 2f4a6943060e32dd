// Package slackutils wraps the Slack Web API client used by the server:
// token or cookie authenticated HTTP, the paging contract consumed by the
// reference cache, and raw authorized downloads.
package slackutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/slack-go/slack"
)

// Slack rejects xoxc tokens presented without a browser-looking client.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

type Client struct {
	api   *slack.Client
	http  *http.Client
	token string
}

// New builds the API client. For cookie auth the HTTP client carries the
// xoxd cookie in a jar scoped to slack.com and masquerades as a browser.
func New(cfg *config.Config) (*Client, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	if cfg.Cookie != "" {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		cookieURL, _ := url.Parse("https://slack.com")
		jar.SetCookies(cookieURL, []*http.Cookie{{Name: "d", Value: cfg.Cookie}})
		httpClient.Jar = jar
		httpClient.Transport = &userAgentTransport{base: http.DefaultTransport}
	}

	return &Client{
		api:   slack.New(cfg.Token, slack.OptionHTTPClient(httpClient)),
		http:  httpClient,
		token: cfg.Token,
	}, nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", browserUserAgent)
	return t.base.RoundTrip(req)
}

func (c *Client) AuthTest(ctx context.Context) (*slack.AuthTestResponse, error) {
	return c.api.AuthTestContext(ctx)
}

func (c *Client) History(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	return c.api.GetConversationHistoryContext(ctx, params)
}

func (c *Client) Replies(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	return c.api.GetConversationRepliesContext(ctx, params)
}

func (c *Client) SearchMessages(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	return c.api.SearchMessagesContext(ctx, query, params)
}

func (c *Client) PostMessage(ctx context.Context, channelID string, opts ...slack.MsgOption) (string, string, error) {
	return c.api.PostMessageContext(ctx, channelID, opts...)
}

func (c *Client) MarkConversation(ctx context.Context, channel, ts string) error {
	return c.api.MarkConversationContext(ctx, channel, ts)
}

func (c *Client) AddReaction(ctx context.Context, name string, item slack.ItemRef) error {
	return c.api.AddReactionContext(ctx, name, item)
}

func (c *Client) RemoveReaction(ctx context.Context, name string, item slack.ItemRef) error {
	return c.api.RemoveReactionContext(ctx, name, item)
}

func (c *Client) FileInfo(ctx context.Context, fileID string) (*slack.File, error) {
	file, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	return file, err
}

// DownloadFile fetches a file's private URL with the bearer token. File
// content endpoints sit outside the Web API, so this goes through the raw
// HTTP client directly.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
