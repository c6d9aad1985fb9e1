package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Dapr publishing defaults.
const (
	DefaultDaprHTTPPort   = 3500
	DefaultDaprPubsubName = "kafka-pubsub"
	DefaultDaprTopicName  = "task-events"

	daprPublishTimeout = 3 * time.Second
)

// DaprConfig configures forwarding to a Dapr sidecar.
type DaprConfig struct {
	Enabled    bool
	HTTPPort   int
	PubsubName string
	TopicName  string
}

// Publisher forwards task events to an external broker. Failures are dropped.
type Publisher interface {
	Publish(ctx context.Context, eventType string, task any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}

// daprEnvelope is the body posted to the sidecar.
type daprEnvelope struct {
	EventType string `json:"event_type"`
	Task      any    `json:"task"`
}

// DaprPublisher posts events to the Dapr pub/sub HTTP API of a local sidecar.
type DaprPublisher struct {
	url     string
	timeout time.Duration
	logger  types.Logger
}

// NewDaprPublisher creates a publisher for cfg, filling in defaults.
func NewDaprPublisher(cfg DaprConfig, logger types.Logger) *DaprPublisher {
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultDaprHTTPPort
	}
	if cfg.PubsubName == "" {
		cfg.PubsubName = DefaultDaprPubsubName
	}
	if cfg.TopicName == "" {
		cfg.TopicName = DefaultDaprTopicName
	}
	return &DaprPublisher{
		url:     fmt.Sprintf("http://localhost:%d/v1.0/publish/%s/%s", cfg.HTTPPort, cfg.PubsubName, cfg.TopicName),
		timeout: daprPublishTimeout,
		logger:  logger,
	}
}

// URL returns the sidecar publish endpoint.
func (p *DaprPublisher) URL() string {
	return p.url
}

// Publish posts one event. The sidecar is optional infrastructure, so any
// failure is logged and dropped.
func (p *DaprPublisher) Publish(_ context.Context, eventType string, task any) {
	code, _, errs := fiber.Post(p.url).
		JSON(daprEnvelope{EventType: eventType, Task: task}).
		Timeout(p.timeout).
		Bytes()
	if len(errs) > 0 {
		p.logger.Debug("Dapr publish failed", "eventType", eventType, "error", errs[0])
		return
	}
	if code >= fiber.StatusBadRequest {
		p.logger.Debug("Dapr publish rejected", "eventType", eventType, "status", code)
	}
}
