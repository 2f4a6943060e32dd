package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/graytonio/slack-mcp/lib/text"
)

const maxAttachmentSize = 5 * 1024 * 1024

var (
	ErrAttachmentsDisabled = errors.New(
		"by default, the attachment_get_data tool is disabled because fetching files can pull large or sensitive " +
			"content into the conversation. To enable it, set the SLACK_MCP_ATTACHMENT_TOOL environment variable to true, 1 or yes")
	ErrMissingFileID    = errors.New("file_id is required")
	ErrAttachmentTooBig = errors.New("file exceeds the 5MB download limit")
	ErrNoDownloadURL    = errors.New("file has no downloadable URL")
)

type AttachmentArgs struct {
	FileID string
}

// AttachmentGetData downloads a file attached to a message. Text content
// comes back inline; anything else is base64 encoded.
func AttachmentGetData(ctx context.Context, api SlackAPI, cfg *config.Config, args AttachmentArgs) (string, error) {
	switch cfg.AttachmentTool {
	case "true", "1", "yes":
	default:
		return "", ErrAttachmentsDisabled
	}

	if args.FileID == "" {
		return "", ErrMissingFileID
	}

	file, err := api.FileInfo(ctx, args.FileID)
	if err != nil {
		return "", fmt.Errorf("file %q: %w", args.FileID, err)
	}

	if file.Size > maxAttachmentSize {
		return "", fmt.Errorf("%w: %q is %d bytes", ErrAttachmentTooBig, args.FileID, file.Size)
	}

	url := file.URLPrivateDownload
	if url == "" {
		url = file.URLPrivate
	}
	if url == "" {
		return "", fmt.Errorf("%w: %q", ErrNoDownloadURL, args.FileID)
	}

	data, err := api.DownloadFile(ctx, url)
	if err != nil {
		return "", fmt.Errorf("file %q: %w", args.FileID, err)
	}

	result := AttachmentResult{
		FileID:   file.ID,
		Filename: file.Name,
		Mimetype: file.Mimetype,
		Size:     len(data),
	}

	if isTextMimetype(file.Mimetype) {
		result.Encoding = "text"
		result.Content = text.WrapContent(string(data))
	} else {
		result.Encoding = "base64"
		result.Content = base64.StdEncoding.EncodeToString(data)
	}

	return marshal(result)
}

func isTextMimetype(mimetype string) bool {
	if strings.HasPrefix(mimetype, "text/") {
		return true
	}
	switch mimetype {
	case "application/json", "application/xml", "application/javascript",
		"application/x-yaml", "application/yaml", "application/csv":
		return true
	}
	return false
}
