package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/example/todo-chat-demo/config"
	"github.com/example/todo-chat-demo/modules/chat"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/modules/task"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	userID         string
	conversationID int64
	asJSON         bool
}

func chatCmd(load loadFunc) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:     "chat <message>",
		Short:   "Send one chat message against the configured stores and print the reply",
		Example: `  todo-chat chat --user u1 "add buy milk"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cmd.OutOrStdout(), cfg, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "user id (required)")
	cmd.Flags().Int64Var(&opts.conversationID, "conversation", 0, "conversation id to continue")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full response as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// runChat runs one exchange in-process, without the module framework's
// service container.
func runChat(ctx context.Context, out io.Writer, cfg *config.Config, opts chatOptions, message string) error {
	app, err := mono.NewMonoApplication(
		mono.WithLogLevel(mono.LogLevelError),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	logger := app.Logger()

	taskRepo, err := task.OpenRepository(ctx, cfg.Storage.DatabaseURL, cfg.Storage.Debug)
	if err != nil {
		return fmt.Errorf("failed to open task storage: %w", err)
	}
	defer taskRepo.Close()

	historyRepo, err := conversation.OpenRepository(ctx, historyConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open history storage: %w", err)
	}
	defer historyRepo.Close()

	chatCfg := chatConfig(cfg)
	svc := chat.NewService(
		chat.NewDispatcher(task.NewStore(taskRepo), chat.NewResponder(chatCfg)),
		conversation.NewHistory(historyRepo),
		logger,
		chat.WithHistoryLimit(chatCfg.HistoryLimit),
	)

	req := chat.ChatRequest{UserID: opts.userID, Message: message}
	if opts.conversationID > 0 {
		req.ConversationID = &opts.conversationID
	}

	resp, err := svc.HandleMessage(ctx, req)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	_, err = fmt.Fprintln(out, resp.Reply)
	return err
}
