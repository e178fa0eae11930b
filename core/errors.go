package core

import "fmt"

// ErrorKind is the closed taxonomy of error kinds the kernel and its agents
// can produce. Kinds classify failures for routing and reporting purposes;
// they are not Go error types themselves.
type ErrorKind string

const (
	ErrorKindInvalidInput        ErrorKind = "invalid_input"
	ErrorKindInvalidStateUpdate  ErrorKind = "invalid_state_update"
	ErrorKindAgentTimeout        ErrorKind = "agent_timeout"
	ErrorKindAgentFailure        ErrorKind = "agent_failure"
	ErrorKindCyclicPlan          ErrorKind = "cyclic_plan"
	ErrorKindPlannerDegraded     ErrorKind = "planner_degraded"
	ErrorKindStreamDropped       ErrorKind = "stream_dropped"
	ErrorKindBreakerOpen         ErrorKind = "breaker_open"
	ErrorKindFatalKernel         ErrorKind = "fatal_kernel"
)

// KernelError pairs an ErrorKind with a message and, when applicable, the
// agent it concerns. Kernel-scoped kinds (cyclic_plan, fatal_kernel,
// invalid_input) are returned as *KernelError from exported functions;
// agent-scoped kinds are recovered locally by the retry wrapper and never
// escape as a Go error.
type KernelError struct {
	Kind    ErrorKind
	Agent   string
	Message string
}

func (e *KernelError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Agent, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewKernelError constructs a KernelError with no associated agent.
func NewKernelError(kind ErrorKind, format string, args ...any) *KernelError {
	return &KernelError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAgentKernelError constructs a KernelError attributed to a specific agent.
func NewAgentKernelError(kind ErrorKind, agent, format string, args ...any) *KernelError {
	return &KernelError{Kind: kind, Agent: agent, Message: fmt.Sprintf(format, args...)}
}
