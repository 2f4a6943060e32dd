package cmd

import (
	"fmt"

	"github.com/graytonio/slack-mcp/lib/creds"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokensCmd)
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <workspace>",
	Short: "Extract xoxc/xoxd credentials from the local Slack desktop app (macOS only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extracted, err := creds.Extract(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("export SLACK_MCP_XOXC_TOKEN=%q\n", extracted.Token)
		fmt.Printf("export SLACK_MCP_XOXD_TOKEN=%q\n", extracted.Cookie)
		return nil
	},
}
