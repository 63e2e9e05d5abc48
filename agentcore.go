// Package agentcore provides a high-level façade over the engine and its
// subsystems for building multi-agent coding assistants. Most applications
// interact with this package by:
//  1. Creating an App via New() (optionally from a config.Settings file)
//  2. Attaching callbacks for streaming output and tool approval
//  3. Sending user messages with ProcessMessage
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise: provider selection, agent lineup, permission rules and delegation
// bounds all come from config.Settings, and every default is safe for local
// development.
package agentcore

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/config"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/engine"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/provider"
	anthropicprovider "github.com/hupe1980/agentcore/provider/anthropic"
	openaiprovider "github.com/hupe1980/agentcore/provider/openai"
)

// Options configures the App.
type Options struct {
	// Settings carries provider selection, agent lineup, permission rules
	// and delegation bounds. Defaults to config.Default().
	Settings config.Settings

	// Provider overrides the backend built from Settings.Provider.
	Provider provider.Provider

	// Store overrides the engine's default in-memory store.
	Store core.Store

	// Callbacks attaches an interactive frontend.
	Callbacks *engine.Callbacks

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// App is the high-level façade aggregating the engine and its subsystems.
type App struct {
	opts   Options
	engine *engine.Engine
}

// New creates an App. Any unset option falls back to a local-development
// default: OpenAI backend, in-memory store, built-in agent lineup.
func New(optFns ...func(o *Options)) (*App, error) {
	opts := Options{
		Settings: config.Default(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := opts.Provider
	if p == nil {
		built, err := buildProvider(opts.Settings)
		if err != nil {
			return nil, err
		}
		p = built
	}

	eng, err := engine.New(func(o *engine.Options) {
		o.Provider = p
		o.Store = opts.Store
		o.Agents = opts.Settings.AgentConfigs()
		o.PermissionRules = opts.Settings.Permissions
		o.MaxDelegationDepth = opts.Settings.MaxDelegationDepth
		o.BackgroundMaxConcurrent = opts.Settings.BackgroundMaxConcurrent
		o.WorkingDirectory = opts.Settings.WorkingDirectory
		o.DefaultAgent = opts.Settings.DefaultAgent
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &App{opts: opts, engine: eng}, nil
}

// NewFromConfigFile creates an App from a YAML settings file.
func NewFromConfigFile(path string, optFns ...func(o *Options)) (*App, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	withSettings := func(o *Options) { o.Settings = *settings }
	return New(append([]func(o *Options){withSettings}, optFns...)...)
}

// buildProvider selects the backend named in the settings.
func buildProvider(settings config.Settings) (provider.Provider, error) {
	switch settings.Provider.Name {
	case "openai", "":
		if key := settings.ResolveAPIKey(); key != "" {
			client := openaisdk.NewClient(openaioption.WithAPIKey(key))
			return openaiprovider.NewFromClient(&client, func(o *openaiprovider.Options) {
				if settings.Provider.Model != "" {
					o.Model = settings.Provider.Model
				}
			}), nil
		}
		return openaiprovider.New(func(o *openaiprovider.Options) {
			if settings.Provider.Model != "" {
				o.Model = settings.Provider.Model
			}
		}), nil

	case "anthropic":
		return anthropicprovider.New(func(o *anthropicprovider.Options) {
			o.APIKey = settings.ResolveAPIKey()
			if settings.Provider.Model != "" {
				o.Model = anthropicsdk.Model(settings.Provider.Model)
			}
		}), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", settings.Provider.Name)
	}
}

// ProcessMessage routes one user message through the agent system and
// returns the final response.
func (a *App) ProcessMessage(ctx context.Context, userMessage string, optFns ...func(o *engine.ProcessOptions)) (string, error) {
	return a.engine.ProcessMessage(ctx, userMessage, optFns...)
}

// SetCallbacks attaches an interactive frontend after construction.
func (a *App) SetCallbacks(cb *engine.Callbacks) { a.engine.SetCallbacks(cb) }

// Subscribe registers a handler for one event kind.
func (a *App) Subscribe(kind bus.Kind, handler bus.Handler) func() {
	return a.engine.Bus().Subscribe(kind, handler)
}

// Stream returns a queue receiving every event of the given kind.
func (a *App) Stream(kind bus.Kind) *bus.Queue { return a.engine.Bus().Stream(kind) }

// Engine exposes the underlying engine for advanced wiring (hooks, extra
// tools, registries).
func (a *App) Engine() *engine.Engine { return a.engine }

// Session returns a copy of the current session, or nil before the first
// message.
func (a *App) Session() *core.Session { return a.engine.Session() }

// Shutdown completes the session, waits for background tasks and releases
// resources.
func (a *App) Shutdown(ctx context.Context) error { return a.engine.Shutdown(ctx) }
