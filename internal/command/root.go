package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "nestchat"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "nestchat - terminal messaging for RentNest",
		Long:          "nestchat talks to the RentNest chat backend: conversations, history and a live chat view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().String("config", "", "config file (default ~/.config/nestchat/config.yaml)")
	cmd.PersistentFlags().String("api-url", "", "chat API base URL")
	cmd.PersistentFlags().String("socket-url", "", "realtime websocket URL")
	cmd.PersistentFlags().Bool("debug", false, "verbose logging")

	cmd.AddCommand(
		NewLoginCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewChatCmd(),
		NewConversationsCmd(),
		NewHistoryCmd(),
		NewSendCmd(),
		NewEditCmd(),
		NewRmCmd(),
		NewBlockCmd(),
		NewUnblockCmd(),
		NewPresenceCmd(),
		NewDeleteConversationCmd(),
		NewWatchCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
