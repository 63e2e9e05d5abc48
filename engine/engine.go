package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/hook"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/permission"
	"github.com/hupe1980/agentcore/provider"
	"github.com/hupe1980/agentcore/store/memory"
	"github.com/hupe1980/agentcore/tool"
	"github.com/hupe1980/agentcore/tool/native"
)

// Options configures an Engine.
type Options struct {
	// Provider drives text generation for every agent. Required.
	Provider provider.Provider

	// Store persists sessions, runs, messages and tool calls. Defaults to
	// an in-memory store.
	Store core.Store

	// Agents declares the available roles. Defaults to the built-in
	// lineup from agent.DefaultConfigs.
	Agents []agent.Config

	// PermissionRules are evaluated first-match-wins; default policy is
	// "ask".
	PermissionRules []permission.Rule

	// ExtraTools are registered on top of the native and delegation tools.
	ExtraTools []tool.Tool

	// MaxDelegationDepth bounds the delegation chain. Defaults to 3.
	MaxDelegationDepth int

	// BackgroundMaxConcurrent bounds parallel background delegations.
	// Defaults to 3.
	BackgroundMaxConcurrent int

	// WorkingDirectory anchors relative tool paths. Defaults to the
	// process working directory.
	WorkingDirectory string

	// DefaultAgent answers messages with no explicit role. Defaults to
	// "orchestrator".
	DefaultAgent string

	Callbacks *Callbacks
	Logger    logging.Logger
}

// Engine wires all subsystems together and manages the session lifecycle.
//
// Usage:
//
//	eng, err := engine.New(func(o *engine.Options) {
//	    o.Provider = openai.New()
//	})
//	result, err := eng.ProcessMessage(ctx, "Read the file main.go")
//	eng.Shutdown(ctx)
type Engine struct {
	opts Options

	bus         *bus.Bus
	hooks       *hook.Registry
	tools       *tool.Registry
	permissions *permission.Checker
	agents      *agent.Registry
	store       core.Store
	delegation  *DelegationManager
	background  *BackgroundTaskManager
	logger      logging.Logger

	mu        sync.Mutex
	session   *core.Session
	callbacks *Callbacks
}

// New creates an engine and wires every subsystem.
func New(optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		MaxDelegationDepth:      3,
		BackgroundMaxConcurrent: 3,
		DefaultAgent:            "orchestrator",
		Logger:                  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Provider == nil {
		return nil, errors.New("engine: a provider is required")
	}
	if opts.Store == nil {
		opts.Store = memory.NewStore()
	}
	if len(opts.Agents) == 0 {
		opts.Agents = agent.DefaultConfigs()
	}
	if opts.WorkingDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("engine: resolve working directory: %w", err)
		}
		opts.WorkingDirectory = wd
	}

	e := &Engine{
		opts:        opts,
		bus:         bus.New(func(o *bus.Options) { o.Logger = opts.Logger }),
		hooks:       hook.NewRegistry(func(o *hook.RegistryOptions) { o.Logger = opts.Logger }),
		tools:       tool.NewRegistry(),
		permissions: permission.NewChecker(opts.PermissionRules),
		agents:      agent.NewRegistry(),
		store:       opts.Store,
		logger:      opts.Logger,
		callbacks:   opts.Callbacks,
	}

	for _, t := range native.All() {
		e.tools.Register(t)
	}
	for _, t := range tool.DelegationTools() {
		e.tools.Register(t)
	}
	for _, t := range tool.TodoTools() {
		e.tools.Register(t)
	}
	for _, t := range opts.ExtraTools {
		e.tools.Register(t)
	}

	for _, cfg := range opts.Agents {
		e.agents.Register(agent.NewDefinition(cfg))
	}

	e.delegation = NewDelegationManager(e.agents, e.bus, e.store, func(o *DelegationManagerOptions) {
		o.MaxDepth = opts.MaxDelegationDepth
		o.Logger = opts.Logger
	})
	e.background = NewBackgroundTaskManager(e.bus, e.store, e.delegation, func(o *BackgroundTaskManagerOptions) {
		o.MaxConcurrent = opts.BackgroundMaxConcurrent
		o.Logger = opts.Logger
	})
	e.delegation.SetProcessorFactory(e.newProcessor)

	return e, nil
}

// newProcessor builds a SessionProcessor for one agent, wired to the
// shared subsystems and the delegation handlers.
func (e *Engine) newProcessor(target *agent.Definition, _ *core.AgentRun) *SessionProcessor {
	e.mu.Lock()
	callbacks := e.callbacks
	e.mu.Unlock()

	return NewSessionProcessor(ProcessorConfig{
		Agent:            target,
		Provider:         e.opts.Provider,
		Tools:            e.tools,
		Permissions:      e.permissions,
		Hooks:            e.hooks,
		Bus:              e.bus,
		Store:            e.store,
		WorkingDirectory: e.opts.WorkingDirectory,
		Callbacks:        callbacks,
		Logger:           e.logger,

		DelegationHandler:       e.delegation.Delegate,
		BackgroundHandler:       e.background.Submit,
		BackgroundStatusHandler: e.background.Status,
	})
}

// SetCallbacks attaches an interactive frontend. Takes effect for
// processors created afterwards.
func (e *Engine) SetCallbacks(cb *Callbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

// ProcessOptions carries the optional arguments of ProcessMessage.
type ProcessOptions struct {
	// AgentRole overrides the default agent for this message.
	AgentRole string
}

// ProcessMessage routes one user message through the agent system and
// returns the final response. The first call creates the session.
func (e *Engine) ProcessMessage(ctx context.Context, userMessage string, optFns ...func(o *ProcessOptions)) (string, error) {
	procOpts := ProcessOptions{}
	for _, fn := range optFns {
		fn(&procOpts)
	}

	session, err := e.ensureSession(ctx, userMessage)
	if err != nil {
		return "", err
	}

	role := procOpts.AgentRole
	if role == "" {
		role = e.opts.DefaultAgent
	}
	def, err := e.agents.Require(role)
	if err != nil {
		return "", err
	}

	run := core.NewAgentRun(session.ID, role, truncate(userMessage, 200))
	if err := e.store.CreateAgentRun(ctx, run); err != nil {
		return "", fmt.Errorf("create agent run: %w", err)
	}

	processor := e.newProcessor(def, nil)

	result, err := processor.Process(ctx, run, userMessage, nil)
	if err != nil {
		if run.Status == core.RunRunning {
			run.Complete(core.RunFailed, err.Error())
			if updateErr := e.store.UpdateAgentRun(ctx, run); updateErr != nil {
				e.logger.Error("engine.run_update_failed", "run_id", run.ID, "error", updateErr.Error())
			}
		}
		e.bus.Publish(ctx, bus.Error, session.ID, role, map[string]any{
			"run_id": run.ID,
			"error":  err.Error(),
		})
		return "", err
	}

	e.mu.Lock()
	e.session.TokenUsage.Add(run.TokenUsage)
	e.session.UpdatedAt = run.CreatedAt
	sessionCopy := *e.session
	e.mu.Unlock()
	if err := e.store.UpdateSession(ctx, &sessionCopy); err != nil {
		e.logger.Error("engine.session_update_failed", "session_id", session.ID, "error", err.Error())
	}

	return result, nil
}

func (e *Engine) ensureSession(ctx context.Context, userMessage string) (*core.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		session := *e.session
		return &session, nil
	}

	session := core.NewSession(truncate(userMessage, 100), e.opts.WorkingDirectory)
	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	e.session = session

	e.bus.Publish(ctx, bus.SessionStart, session.ID, "", map[string]any{
		"title": session.Title,
	})

	sessionCopy := *session
	return &sessionCopy, nil
}

// Session returns a copy of the current session, or nil before the first
// message.
func (e *Engine) Session() *core.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	session := *e.session
	return &session
}

// Bus exposes the event bus for subscriptions and streams.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Hooks exposes the hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Tools exposes the tool registry.
func (e *Engine) Tools() *tool.Registry { return e.tools }

// Agents exposes the agent registry.
func (e *Engine) Agents() *agent.Registry { return e.agents }

// Store exposes the persistence layer.
func (e *Engine) Store() core.Store { return e.store }

// Background exposes the background task manager.
func (e *Engine) Background() *BackgroundTaskManager { return e.background }

// Delegation exposes the delegation manager.
func (e *Engine) Delegation() *DelegationManager { return e.delegation }

// Shutdown completes the session, waits for background tasks and releases
// resources. The engine is unusable afterwards.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()

	if session != nil && session.Status == core.SessionActive {
		session.Status = core.SessionCompleted
		if err := e.store.UpdateSession(ctx, session); err != nil {
			e.logger.Error("engine.session_update_failed", "session_id", session.ID, "error", err.Error())
		}
		e.bus.Publish(ctx, bus.SessionEnd, session.ID, "", nil)
	}

	waitErr := e.background.Wait(ctx)
	e.bus.Clear()
	closeErr := e.store.Close()

	return errors.Join(waitErr, closeErr)
}
