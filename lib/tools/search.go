package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/graytonio/slack-mcp/lib/text"
	"github.com/slack-go/slack"
)

var (
	ErrInvalidCursor       = errors.New("invalid cursor")
	ErrInvalidDate         = errors.New("unable to parse date")
	ErrConflictingDates    = errors.New("conflicting date filters")
	ErrSearchNotForBots    = errors.New("conversations_search_messages is not available for bot tokens (xoxb), use a user token (xoxp) instead")
	ErrUnknownUser         = errors.New("user not found")
	ErrUnknownChannel      = errors.New("channel not found")
	ErrInvalidChannelParam = errors.New("invalid channel format")
)

// filterKeys lists the Slack search modifiers recognized inside a raw
// query, in the order they are appended when rebuilding it.
var filterKeys = []string{"is", "in", "from", "with", "before", "after", "on", "during"}

type SearchArgs struct {
	Query             string
	FilterInChannel   string
	FilterInIMOrMPIM  string
	FilterUsersWith   string
	FilterUsersFrom   string
	FilterDateBefore  string
	FilterDateAfter   string
	FilterDateOn      string
	FilterDateDuring  string
	FilterThreadsOnly bool
	Cursor            string
	Limit             int
}

// SearchMessages runs a Slack message search, merging explicit filter
// arguments into any modifiers already embedded in the query string. The
// search API only works with user-scoped tokens.
func SearchMessages(ctx context.Context, api SlackAPI, c *cache.Cache, cfg *config.Config, args SearchArgs) (string, error) {
	if cfg.IsBotToken {
		return "", ErrSearchNotForBots
	}

	freeText, filters := splitQuery(strings.TrimSpace(args.Query))

	if args.FilterThreadsOnly {
		addFilter(filters, "is", "thread")
	}

	if args.FilterInChannel != "" {
		f, err := formatChannelParam(ctx, c, args.FilterInChannel)
		if err != nil {
			return "", err
		}
		addFilter(filters, "in", f)
	} else if args.FilterInIMOrMPIM != "" {
		f, err := formatUserParam(ctx, c, args.FilterInIMOrMPIM)
		if err != nil {
			return "", err
		}
		addFilter(filters, "in", f)
	}

	if args.FilterUsersWith != "" {
		f, err := formatUserParam(ctx, c, args.FilterUsersWith)
		if err != nil {
			return "", err
		}
		addFilter(filters, "with", f)
	}
	if args.FilterUsersFrom != "" {
		f, err := formatUserParam(ctx, c, args.FilterUsersFrom)
		if err != nil {
			return "", err
		}
		addFilter(filters, "from", f)
	}

	dates, err := buildDateFilters(args.FilterDateBefore, args.FilterDateAfter, args.FilterDateOn, args.FilterDateDuring, time.Now().UTC())
	if err != nil {
		return "", err
	}
	for key, val := range dates {
		addFilter(filters, key, val)
	}

	page, err := parseSearchCursor(args.Cursor)
	if err != nil {
		return "", err
	}

	limit := args.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	resp, err := api.SearchMessages(ctx, buildQuery(freeText, filters), slack.SearchParameters{
		Sort:          "timestamp",
		SortDirection: "desc",
		Count:         limit,
		Page:          page,
	})
	if err != nil {
		return "", err
	}

	messages := convertSearchMessages(resp.Matches, c)
	if len(messages) > 0 && resp.Pagination.Page < resp.Pagination.PageCount {
		raw := fmt.Sprintf("page:%d", resp.Pagination.Page+1)
		messages[len(messages)-1].Cursor = base64.StdEncoding.EncodeToString([]byte(raw))
	}

	return marshal(messages)
}

// splitQuery separates free text tokens from key:value search modifiers.
func splitQuery(q string) ([]string, map[string][]string) {
	var freeText []string
	filters := make(map[string][]string)

	for _, tok := range strings.Fields(q) {
		key, val, found := strings.Cut(tok, ":")
		if found && isFilterKey(strings.ToLower(key)) {
			k := strings.ToLower(key)
			filters[k] = append(filters[k], val)
			continue
		}
		freeText = append(freeText, tok)
	}
	return freeText, filters
}

func isFilterKey(key string) bool {
	for _, k := range filterKeys {
		if k == key {
			return true
		}
	}
	return false
}

func addFilter(filters map[string][]string, key, val string) {
	for _, existing := range filters[key] {
		if existing == val {
			return
		}
	}
	filters[key] = append(filters[key], val)
}

// buildQuery reassembles the final search query in deterministic modifier
// order.
func buildQuery(freeText []string, filters map[string][]string) string {
	parts := append([]string{}, freeText...)
	for _, key := range filterKeys {
		for _, val := range filters[key] {
			parts = append(parts, key+":"+val)
		}
	}
	return strings.Join(parts, " ")
}

func parseSearchCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	_, pageStr, found := strings.Cut(string(decoded), ":")
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return page, nil
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var standardDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01-02-2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var (
	monthYearRe = regexp.MustCompile(`^(\d{4})\s+([A-Za-z]+)$|^([A-Za-z]+)\s+(\d{4})$`)
	dmyRe       = regexp.MustCompile(`^(\d{1,2})[-\s]+([A-Za-z]+)[-\s]+(\d{4})$`)
	mdyRe       = regexp.MustCompile(`^([A-Za-z]+)[-\s]+(\d{1,2})[-\s]+(\d{4})$`)
	ymdRe       = regexp.MustCompile(`^(\d{4})[-\s]+([A-Za-z]+)[-\s]+(\d{1,2})$`)
	daysAgoRe   = regexp.MustCompile(`^(\d+)\s+days?\s+ago$`)
)

// parseFlexibleDate accepts the date formats users actually type and
// normalizes them to YYYY-MM-DD.
func parseFlexibleDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)

	for _, layout := range standardDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	if m := monthYearRe.FindStringSubmatch(raw); m != nil {
		var year int
		var monStr string
		if m[1] != "" {
			year, _ = strconv.Atoi(m[1])
			monStr = strings.ToLower(m[2])
		} else {
			year, _ = strconv.Atoi(m[4])
			monStr = strings.ToLower(m[3])
		}
		if mon, ok := monthNames[monStr]; ok {
			return time.Date(year, mon, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), nil
		}
	}

	if d, ok := parseNamedMonthDate(dmyRe, raw, 1, 2, 3); ok {
		return d, nil
	}
	if d, ok := parseNamedMonthDate(mdyRe, raw, 2, 1, 3); ok {
		return d, nil
	}
	if d, ok := parseNamedMonthDate(ymdRe, raw, 3, 2, 1); ok {
		return d, nil
	}

	switch lower := strings.ToLower(raw); lower {
	case "today":
		return now.Format("2006-01-02"), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format("2006-01-02"), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), nil
	}

	if m := daysAgoRe.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		days, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -days).Format("2006-01-02"), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// parseNamedMonthDate handles "2 Jan 2024" style permutations. Group
// indices pick day/month/year out of the regexp. Impossible days are
// rejected by checking the constructed date did not roll over.
func parseNamedMonthDate(re *regexp.Regexp, raw string, dayGroup, monGroup, yearGroup int) (string, bool) {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	day, _ := strconv.Atoi(m[dayGroup])
	year, _ := strconv.Atoi(m[yearGroup])
	mon, ok := monthNames[strings.ToLower(m[monGroup])]
	if !ok {
		return "", false
	}

	t := time.Date(year, mon, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != mon {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// buildDateFilters validates the date argument combinations: "on" stands
// alone, "during" excludes before/after, and an after later than before is
// an error.
func buildDateFilters(before, after, on, during string, now time.Time) (map[string]string, error) {
	out := make(map[string]string)

	if on != "" {
		if during != "" || before != "" || after != "" {
			return nil, fmt.Errorf("%w: 'on' cannot be combined with other date filters", ErrConflictingDates)
		}
		d, err := parseFlexibleDate(on, now)
		if err != nil {
			return nil, err
		}
		out["on"] = d
		return out, nil
	}

	if during != "" {
		if before != "" || after != "" {
			return nil, fmt.Errorf("%w: 'during' cannot be combined with 'before' or 'after'", ErrConflictingDates)
		}
		d, err := parseFlexibleDate(during, now)
		if err != nil {
			return nil, err
		}
		out["during"] = d
		return out, nil
	}

	if after != "" {
		d, err := parseFlexibleDate(after, now)
		if err != nil {
			return nil, err
		}
		out["after"] = d
	}
	if before != "" {
		d, err := parseFlexibleDate(before, now)
		if err != nil {
			return nil, err
		}
		out["before"] = d
	}

	if out["after"] != "" && out["before"] != "" && out["after"] > out["before"] {
		return nil, fmt.Errorf("%w: 'after' date is after 'before' date", ErrConflictingDates)
	}

	return out, nil
}

// formatUserParam turns a user reference (ID, @name, or <@name) into the
// <@UXXX> form Slack search expects.
func formatUserParam(ctx context.Context, c *cache.Cache, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "U") || strings.HasPrefix(raw, "W") {
		u, err := c.Users().GetByID(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownUser, raw)
		}
		return "<@" + u.ID + ">", nil
	}

	raw = strings.TrimPrefix(raw, "<@")
	raw = strings.TrimPrefix(raw, "@")

	u, err := c.Users().GetByName(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownUser, raw)
	}
	return "<@" + u.ID + ">", nil
}

// formatChannelParam turns a channel reference (#name or C/G ID) into the
// bare channel name Slack search expects.
func formatChannelParam(ctx context.Context, c *cache.Cache, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "#") {
		ch, err := c.Channels().GetByName(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownChannel, raw)
		}
		return strings.TrimPrefix(ch.Name, "#"), nil
	}

	if strings.HasPrefix(raw, "C") || strings.HasPrefix(raw, "G") {
		ch, err := c.Channels().GetByID(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownChannel, raw)
		}
		return strings.TrimPrefix(ch.Name, "#"), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidChannelParam, raw)
}

// convertSearchMessages flattens search matches. Search results carry the
// channel name rather than an ID, and the thread timestamp only via the
// permalink.
func convertSearchMessages(matches []slack.SearchMessage, c *cache.Cache) []Message {
	messages := make([]Message, 0, len(matches))

	for _, msg := range matches {
		userID := msg.User
		if userID == "" {
			userID = msg.Username
		}
		userName, realName := userNames(c, userID)
		if userName == userID && msg.User == "" && msg.Username != "" {
			userName = msg.Username
			realName = msg.Username
		}

		ts, err := text.TimestampToRFC3339(msg.Timestamp)
		if err != nil {
			continue
		}

		channelID := ""
		if msg.Channel.Name != "" {
			channelID = "#" + msg.Channel.Name
		}

		messages = append(messages, Message{
			MsgID:     msg.Timestamp,
			UserID:    msg.User,
			UserName:  text.WrapContent(userName),
			RealName:  text.WrapContent(realName),
			ChannelID: channelID,
			ThreadTs:  threadTsFromPermalink(msg.Permalink),
			Text:      text.WrapContent(text.Process(msg.Text)),
			Time:      ts,
		})
	}

	return messages
}

func threadTsFromPermalink(permalink string) string {
	if !strings.Contains(permalink, "thread_ts=") {
		return ""
	}
	u, err := url.Parse(permalink)
	if err != nil {
		return ""
	}
	return u.Query().Get("thread_ts")
}
