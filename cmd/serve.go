package cmd

import (
	"context"

	"github.com/graytonio/slack-mcp/lib/cache"
	"github.com/graytonio/slack-mcp/lib/config"
	"github.com/graytonio/slack-mcp/lib/mcpserver"
	"github.com/graytonio/slack-mcp/lib/slackutils"
	"github.com/graytonio/slack-mcp/lib/text"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Slack tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !viper.GetBool("verbose") {
			cfg.ApplyLogLevel()
		}

		client, err := slackutils.New(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		auth, err := client.AuthTest(ctx)
		if err != nil {
			return err
		}

		workspace, err := text.WorkspaceFromURL(auth.URL)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"workspace": workspace,
			"user":      auth.User,
			"auth":      cfg.AuthMode(),
		}).Info("authenticated against Slack")

		c := cache.New(client, cache.Config{
			TTL:          cfg.CacheTTL,
			UsersPath:    cfg.UsersCachePath,
			ChannelsPath: cfg.ChannelsCachePath,
		})
		if err := c.Warm(ctx); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"users":    c.Users().Len(),
			"channels": c.Channels().Len(),
		}).Info("reference cache ready")

		return mcpserver.New(client, c, cfg, workspace).ServeStdio()
	},
}
