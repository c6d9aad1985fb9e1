package cmd

import (
	"github.com/example/todo-chat-demo/config"
	"github.com/example/todo-chat-demo/llm"
	"github.com/example/todo-chat-demo/modules/api"
	"github.com/example/todo-chat-demo/modules/chat"
	"github.com/example/todo-chat-demo/modules/conversation"
	"github.com/example/todo-chat-demo/modules/notification"
)

type loadFunc func() (*config.Config, error)

func chatConfig(cfg *config.Config) chat.Config {
	temperature := cfg.LLM.Temperature
	return chat.Config{
		HistoryLimit: cfg.Chat.HistoryLimit,
		Fallback:     cfg.Chat.Fallback,
		ContextTurns: cfg.LLM.ContextTurns,
		LLM: llm.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Timeout:     cfg.LLM.Timeout,
			Temperature: &temperature,
		},
	}
}

func historyConfig(cfg *config.Config) conversation.BackendConfig {
	return conversation.BackendConfig{
		Backend:   cfg.Storage.HistoryBackend,
		DBPath:    cfg.Storage.HistoryDBPath,
		RedisAddr: cfg.Storage.RedisAddr,
		Debug:     cfg.Storage.Debug,
	}
}

func daprConfig(cfg *config.Config) notification.DaprConfig {
	return notification.DaprConfig{
		Enabled:    cfg.Dapr.Enabled,
		HTTPPort:   cfg.Dapr.HTTPPort,
		PubsubName: cfg.Dapr.PubsubName,
		TopicName:  cfg.Dapr.TopicName,
	}
}

func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		Addr:        cfg.HTTP.Addr,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		AccessLog:   cfg.HTTP.AccessLog,
		ChatTimeout: chat.SendTimeout(chatConfig(cfg)),
	}
}
