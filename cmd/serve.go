package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/todo-chat-demo/config"
	"github.com/example/todo-chat-demo/metrics"
	"github.com/example/todo-chat-demo/modules/api"
	"github.com/example/todo-chat-demo/modules/chat"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/modules/notification"
	"github.com/example/todo-chat-demo/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"github.com/spf13/cobra"
)

func serveCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log.Println("=== Todo Chat ===")
	log.Printf("Task storage: %s", task.BackendName(cfg.Storage.DatabaseURL))
	log.Printf("History storage: %s", cfg.Storage.HistoryBackend)
	log.Printf("Chat fallback: %s", cfg.Chat.Fallback)

	level := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		level = mono.LogLevelError
	}

	opts := []mono.MonoFrameworkOption{
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithNATSPort(cfg.NATSPort),
	}
	if cfg.Storage.HistoryBackend == conversation.BackendKV {
		opts = append(opts, mono.WithJetStreamStorageDir(cfg.Storage.JetStreamDir))
	}

	app, err := mono.NewMonoApplication(opts...)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if cfg.Storage.HistoryBackend == conversation.BackendKV {
		kv, err := kvjetstream.New(kvjetstream.Config{
			Buckets: []kvjetstream.BucketConfig{
				{Name: conversation.KVBucket, Description: "Conversation history", Storage: kvjetstream.FileStorage},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create kv plugin: %w", err)
		}
		if err := app.RegisterPlugin(kv, conversation.KVPluginAlias); err != nil {
			return fmt.Errorf("failed to register kv plugin: %w", err)
		}
	}

	logger := app.Logger()
	reg := metrics.New()

	// Order: independent modules first, then modules with dependencies
	// - task: Task Store (services + task events)
	// - conversation: Conversation History (services)
	// - notification: event consumer, optional Dapr forwarding
	// - chat: command dispatcher (depends on task, conversation)
	// - api: Fiber HTTP/WebSocket adapter (depends on task, conversation, chat)
	app.Register(task.NewModule(cfg.Storage.DatabaseURL, cfg.Storage.Debug, reg, logger))
	app.Register(conversation.NewModule(historyConfig(cfg), logger))
	app.Register(notification.NewModule(daprConfig(cfg), logger))
	app.Register(chat.NewModule(chatConfig(cfg), reg, logger))
	app.Register(api.NewModule(apiConfig(cfg), reg, logger))

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (%s):", cfg.HTTP.Addr)
	log.Println("  GET    /api/:user_id/tasks[?status=all|pending|completed] - List tasks")
	log.Println("  POST   /api/:user_id/tasks                   - Create a task")
	log.Println("  GET    /api/:user_id/tasks/stats             - Task counts")
	log.Println("  GET    /api/:user_id/tasks/:id               - Get a task")
	log.Println("  PUT    /api/:user_id/tasks/:id               - Edit a task")
	log.Println("  PATCH  /api/:user_id/tasks/:id/complete      - Toggle or set completion")
	log.Println("  DELETE /api/:user_id/tasks/:id               - Delete a task")
	log.Println("  POST   /api/:user_id/chat                    - Send a chat message")
	log.Println("  GET    /api/:user_id/conversations/:id/messages - Conversation turns")
	log.Println("  DELETE /api/:user_id/conversations/:id       - Delete a conversation")
	log.Println("  GET    /ws/:user_id/chat                     - Chat over WebSocket")
	log.Println("  GET    /metrics                              - Prometheus metrics")
	log.Println("  GET    /health                               - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
