// Package monotest runs modules inside a real, fully in-process mono
// application so adapters can be tested over the service container.
package monotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/require"
)

// ClientName is the module name of the client returned by Start.
const ClientName = "test-client"

// subscriptionDelay gives request-reply subscriptions time to become ready.
const subscriptionDelay = 100 * time.Millisecond

// Client is a module that depends on every module passed to Start and keeps
// their service containers.
type Client struct {
	deps []string

	mu         sync.Mutex
	containers map[string]mono.ServiceContainer
}

var _ mono.DependentModule = (*Client)(nil)

func (c *Client) Name() string                  { return ClientName }
func (c *Client) Start(_ context.Context) error { return nil }
func (c *Client) Stop(_ context.Context) error  { return nil }
func (c *Client) Dependencies() []string        { return c.deps }

func (c *Client) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containers[dependency] = container
}

// Container returns the service container of the named module.
func (c *Client) Container(t testing.TB, module string) mono.ServiceContainer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	container, ok := c.containers[module]
	require.Truef(t, ok, "no service container for module %q", module)
	return container
}

// Setup adds framework options and plugins to an application started by
// StartWith. Plugins are registered under their map key.
type Setup struct {
	Options []mono.MonoFrameworkOption
	Plugins map[string]mono.PluginModule
}

// Start registers modules plus a Client depending on all of them, starts the
// application without a network listener and stops it when the test ends.
func Start(t testing.TB, modules ...mono.Module) *Client {
	t.Helper()
	return StartWith(t, Setup{}, modules...)
}

// StartWith is Start with extra options and plugins.
func StartWith(t testing.TB, setup Setup, modules ...mono.Module) *Client {
	t.Helper()

	opts := append([]mono.MonoFrameworkOption{
		mono.WithNATSDontListen(),
		mono.WithNATSInProcessConn(),
		mono.WithLogLevel(mono.LogLevelError),
	}, setup.Options...)
	app, err := mono.NewMonoApplication(opts...)
	require.NoError(t, err)

	for alias, plugin := range setup.Plugins {
		require.NoError(t, app.RegisterPlugin(plugin, alias))
	}

	client := &Client{containers: make(map[string]mono.ServiceContainer)}
	for _, module := range modules {
		require.NoError(t, app.Register(module))
		client.deps = append(client.deps, module.Name())
	}
	require.NoError(t, app.Register(client))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	time.Sleep(subscriptionDelay)
	return client
}
