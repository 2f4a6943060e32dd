// Package text flattens Slack message payloads (mrkdwn, Block Kit,
// attachments) into plain text safe to hand to a tool-calling agent.
package text

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

var ErrInvalidTimestamp = errors.New("invalid slack timestamp")

// TimestampToRFC3339 converts a Slack "1234567890.123456" timestamp to an
// RFC3339 UTC string with second precision.
func TimestampToRFC3339(ts string) (string, error) {
	parts := strings.Split(ts, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}

	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
	}

	return time.Unix(secs, 0).UTC().Format("2006-01-02T15:04:05Z"), nil
}

// WorkspaceFromURL extracts the workspace subdomain from a Slack team URL
// such as https://myteam.slack.com/.
func WorkspaceFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid Slack URL %q: %w", raw, err)
	}
	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid Slack URL %q", raw)
	}
	return parts[0], nil
}

// WrapContent fences untrusted Slack content so the agent can tell it apart
// from tool output.
func WrapContent(s string) string {
	if s == "" {
		return s
	}
	return "[SLACK_CONTENT]" + s + "[/SLACK_CONTENT]"
}

var (
	slackLinkRe = regexp.MustCompile(`<(https?://[^>|]+)\|([^>]+)>`)
	mdLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)
	htmlLinkRe  = regexp.MustCompile(`<a\s+href=["']([^"']+)["'][^>]*>([^<]+)</a>`)
	urlRe       = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
	cleanRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s.,\-:/?=&%]`)
	spaceRe     = regexp.MustCompile(`[ \t]+`)
)

// Process rewrites links to "URL - description" form and strips characters
// outside a conservative allow set, preserving URLs verbatim.
func Process(text string) string {
	text = rewriteLinks(text, slackLinkRe, 1, 2)
	text = rewriteLinks(text, mdLinkRe, 2, 1)
	text = rewriteLinks(text, htmlLinkRe, 1, 2)

	// Shield URLs from the character filter.
	urls := urlRe.FindAllString(text, -1)
	for i, u := range urls {
		text = strings.Replace(text, u, placeholder(i), 1)
	}

	text = cleanRe.ReplaceAllString(text, "")

	for i, u := range urls {
		text = strings.Replace(text, placeholder(i), u, 1)
	}

	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func placeholder(i int) string {
	return fmt.Sprintf("___URL_PLACEHOLDER_%d___", i)
}

// rewriteLinks replaces each link match with "URL - description". A
// trailing comma is added unless the link ends the text. Matches are
// replaced back to front so indices stay valid.
func rewriteLinks(text string, re *regexp.Regexp, urlGroup, textGroup int) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		linkURL := text[m[2*urlGroup]:m[2*urlGroup+1]]
		linkText := text[m[2*textGroup]:m[2*textGroup+1]]

		replacement := linkURL + " - " + linkText
		if strings.TrimSpace(text[m[1]:]) != "" {
			replacement += ","
		}
		text = text[:m[0]] + replacement + text[m[1]:]
	}
	return text
}

// AttachmentToText flattens one legacy attachment into a single line.
func AttachmentToText(att slack.Attachment) string {
	var parts []string

	if att.Title != "" {
		parts = append(parts, "Title: "+att.Title)
	}
	if att.AuthorName != "" {
		parts = append(parts, "Author: "+att.AuthorName)
	}
	if att.Pretext != "" {
		parts = append(parts, "Pretext: "+att.Pretext)
	}
	if att.Text != "" {
		parts = append(parts, "Text: "+att.Text)
	}
	if att.Footer != "" {
		ts := att.Ts.String()
		if ts != "" && !strings.Contains(ts, ".") {
			ts += ".000000"
		}
		tsStr, err := TimestampToRFC3339(ts)
		if err != nil {
			tsStr = ""
		}
		parts = append(parts, "Footer: "+att.Footer+" @ "+tsStr)
	}

	out := strings.Join(parts, "; ")
	replacer := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "(", "[", ")", "]")
	return strings.TrimSpace(replacer.Replace(out))
}

// AttachmentsToText flattens all attachments of a message, prefixed with
// ". " when the message itself has text.
func AttachmentsToText(msgText string, attachments []slack.Attachment) string {
	var descriptions []string
	for _, att := range attachments {
		if plain := AttachmentToText(att); plain != "" {
			descriptions = append(descriptions, plain)
		}
	}
	if len(descriptions) == 0 {
		return ""
	}

	prefix := ""
	if msgText != "" {
		prefix = ". "
	}
	return prefix + strings.Join(descriptions, ", ")
}
