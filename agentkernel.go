// Package agentkernel provides a high-level façade over the orchestration
// kernel (planner, grouper, executor, router, streaming coordinator and
// checkpointer) enabling rapid construction of multi-agent request
// pipelines. Most applications interact with this package by:
//  1. Creating an AgentKernel via New() (optionally overriding defaults)
//  2. Registering one or more agents (search, analytics, document, ...)
//  3. Invoking a request synchronously (InvokeSync) or with a live event
//     stream (Invoke)
//
// The façade delegates orchestration to kernel.Kernel while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable
// checkpoint store and a structured logger.
package agentkernel

import (
	"context"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/plan"
	"github.com/hupe1980/agentkernel/stream"
)

// Options configures the AgentKernel instance.
type Options struct {
	// Config carries every environment-level knob (concurrency, retry
	// policy, breaker thresholds, timeouts, checkpoint store selection).
	Config kernel.Config

	// Classifier, if set, is consulted before the always-available heuristic
	// classifier when the supervisor plans a request.
	Classifier plan.Classifier

	// Logger (defaults to a JSON slog-backed logger if nil).
	Logger *logging.KernelLogger
}

// AgentKernel is the high-level façade aggregating the underlying kernel and
// its agent registry.
type AgentKernel struct {
	opts     Options
	registry *core.Registry
	engine   *kernel.Kernel
}

// New creates a new AgentKernel instance with optional overrides. Building
// the underlying kernel is deferred until the first Invoke/InvokeSync call
// so RegisterAgent calls made after New still take effect.
func New(optFns ...func(o *Options)) *AgentKernel {
	opts := Options{
		Config: kernel.DefaultConfig(),
		Logger: logging.NewLogger(logging.DefaultConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AgentKernel{opts: opts, registry: core.NewRegistry()}
}

// RegisterAgent adds an agent to the underlying registry.
func (m *AgentKernel) RegisterAgent(a core.Agent) { m.registry.Register(a) }

func (m *AgentKernel) ensureEngine() error {
	if m.engine != nil {
		return nil
	}
	supervisor := plan.NewSupervisor(m.opts.Classifier)
	engine, err := kernel.New(supervisor, m.registry, m.opts.Config, m.opts.Logger)
	if err != nil {
		return err
	}
	m.engine = engine
	return nil
}

// Invoke starts a run and returns a channel of every outbound wire event
// produced along the way, plus a channel that receives the terminal result
// (or an error) exactly once before closing.
func (m *AgentKernel) Invoke(ctx context.Context, threadID, input string) (<-chan stream.WireEvent, <-chan invokeOutcome, error) {
	if err := m.ensureEngine(); err != nil {
		return nil, nil, err
	}

	events := make(chan stream.WireEvent, 256)
	outcome := make(chan invokeOutcome, 1)

	go func() {
		defer close(events)
		defer close(outcome)
		result, err := m.engine.Run(ctx, kernel.InvokeRequest{Input: input, ThreadID: threadID}, events)
		outcome <- invokeOutcome{result: result, err: err}
	}()

	return events, outcome, nil
}

// invokeOutcome carries Invoke's terminal result down its outcome channel.
type invokeOutcome struct {
	result kernel.InvokeResult
	err    error
}

// InvokeSync is a synchronous helper that drains Invoke's event channel and
// returns only the terminal result.
func (m *AgentKernel) InvokeSync(ctx context.Context, threadID, input string) (kernel.InvokeResult, error) {
	events, outcome, err := m.Invoke(ctx, threadID, input)
	if err != nil {
		return kernel.InvokeResult{}, err
	}

	for range events {
		// Drain; InvokeSync's caller only wants the terminal result.
	}

	final := <-outcome
	return final.result, final.err
}
