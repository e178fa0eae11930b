package kernel

import (
	"time"

	"github.com/hupe1980/agentkernel/retry"
)

// Config holds every environment-level knob the run controller and its
// collaborators are parameterized by. Zero-value fields are filled in with
// the documented defaults by DefaultConfig.
type Config struct {
	MaxConcurrent     int
	MaxRetries        int
	RetryPolicy       retry.BackoffType
	BreakerThreshold  int
	BreakerTimeout    time.Duration
	AgentTimeout      time.Duration
	RunDeadline       time.Duration
	StreamHWM         int
	CheckpointStore   string // memory | local_durable
	CheckpointDBPath  string // used when CheckpointStore == local_durable
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:    3,
		MaxRetries:       3,
		RetryPolicy:      retry.BackoffExponential,
		BreakerThreshold: 5,
		BreakerTimeout:   60 * time.Second,
		AgentTimeout:     60 * time.Second,
		RunDeadline:      600 * time.Second,
		StreamHWM:        1024,
		CheckpointStore:  "memory",
		CheckpointDBPath: "agentkernel.db",
	}
}
