// Package cmd holds the todo-chat command line.
package cmd

import (
	"github.com/example/todo-chat-demo/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand builds the todo-chat command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "todo-chat",
		Short:         "Todo chat backend: task store, conversation history and chat commands",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	serve := serveCmd(load)
	root.AddCommand(serve)
	root.AddCommand(chatCmd(load))
	root.RunE = serve.RunE

	return root
}
