package text

import (
	"strings"

	"github.com/slack-go/slack"
)

// BlocksToText extracts the readable content of Block Kit blocks as a
// single ". " prefixed string, or "" when nothing is extractable.
func BlocksToText(blocks slack.Blocks) string {
	var parts []string
	for _, block := range blocks.BlockSet {
		if t := blockToText(block); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return ". " + strings.Join(parts, " | ")
}

func blockToText(block slack.Block) string {
	switch b := block.(type) {
	case *slack.SectionBlock:
		var parts []string
		if b.Text != nil && b.Text.Text != "" {
			parts = append(parts, b.Text.Text)
		}
		for _, field := range b.Fields {
			if field != nil && field.Text != "" {
				parts = append(parts, field.Text)
			}
		}
		return strings.Join(parts, " | ")

	case *slack.HeaderBlock:
		if b.Text != nil {
			return b.Text.Text
		}
		return ""

	case *slack.RichTextBlock:
		return richTextToText(b.Elements)

	case *slack.ContextBlock:
		var parts []string
		for _, el := range b.ContextElements.Elements {
			if obj, ok := el.(*slack.TextBlockObject); ok && obj.Text != "" {
				parts = append(parts, obj.Text)
			}
		}
		return strings.Join(parts, " ")
	}

	return ""
}

func richTextToText(elements []slack.RichTextElement) string {
	var parts []string
	for _, el := range elements {
		switch e := el.(type) {
		case *slack.RichTextSection:
			if t := sectionElementsToText(e.Elements); t != "" {
				parts = append(parts, t)
			}
		case *slack.RichTextQuote:
			if t := sectionElementsToText(e.Elements); t != "" {
				parts = append(parts, t)
			}
		case *slack.RichTextPreformatted:
			if t := sectionElementsToText(e.Elements); t != "" {
				parts = append(parts, t)
			}
		case *slack.RichTextList:
			for _, item := range e.Elements {
				if sec, ok := item.(*slack.RichTextSection); ok {
					if t := sectionElementsToText(sec.Elements); t != "" {
						parts = append(parts, "- "+t)
					}
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

func sectionElementsToText(elements []slack.RichTextSectionElement) string {
	var sb strings.Builder
	for _, el := range elements {
		switch e := el.(type) {
		case *slack.RichTextSectionTextElement:
			sb.WriteString(e.Text)
		case *slack.RichTextSectionLinkElement:
			if e.Text != "" {
				sb.WriteString(e.Text)
			} else {
				sb.WriteString(e.URL)
			}
		case *slack.RichTextSectionEmojiElement:
			sb.WriteString(":" + e.Name + ":")
		case *slack.RichTextSectionUserElement:
			sb.WriteString("<@" + e.UserID + ">")
		case *slack.RichTextSectionChannelElement:
			sb.WriteString("<#" + e.ChannelID + ">")
		case *slack.RichTextSectionBroadcastElement:
			r := string(e.Range)
			if r == "" {
				r = "everyone"
			}
			sb.WriteString("@" + r)
		}
	}
	return sb.String()
}
