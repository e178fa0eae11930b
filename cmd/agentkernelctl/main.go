// Command agentkernelctl loads configuration (environment and optional YAML
// via Viper) and either starts the transport server or runs a single
// synchronous invocation from the terminal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/agentkernel/agents"
	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/kernel"
	"github.com/hupe1980/agentkernel/logging"
	"github.com/hupe1980/agentkernel/plan"
	"github.com/hupe1980/agentkernel/retry"
	"github.com/hupe1980/agentkernel/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "agentkernelctl",
		Short: "Run or query the agentkernel orchestration engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newInvokeCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket + HTTP transport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			k, logger, err := buildKernel(cfg)
			if err != nil {
				return err
			}
			server := transport.NewServer(k, logger)
			logger.Info("starting server", "addr", addr)
			return http.ListenAndServe(addr, server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

func newInvokeCmd(configPath *string) *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "invoke [input text]",
		Short: "Run a single synchronous invocation and print the terminal result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			k, logger, err := buildKernel(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RunDeadline+30*time.Second)
			defer cancel()

			result, err := k.Run(ctx, kernel.InvokeRequest{Input: args[0], ThreadID: threadID}, nil)
			if err != nil {
				return err
			}

			logger.Info("run complete", "thread_id", result.ThreadID, "is_complete", result.IsComplete)
			for agent, res := range result.Results {
				fmt.Printf("%s: %s — %s\n", agent, res.Status, res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread-id", "", "resume an existing thread")
	return cmd
}

// loadConfig binds the documented environment knobs (and, if configPath is
// set, a YAML file of the same keys) into a kernel.Config via Viper.
func loadConfig(configPath string) (kernel.Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := kernel.DefaultConfig()
	v.SetDefault("max_concurrent", cfg.MaxConcurrent)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("retry_policy", string(cfg.RetryPolicy))
	v.SetDefault("breaker_threshold", cfg.BreakerThreshold)
	v.SetDefault("breaker_timeout_s", int(cfg.BreakerTimeout.Seconds()))
	v.SetDefault("agent_timeout_s", int(cfg.AgentTimeout.Seconds()))
	v.SetDefault("run_deadline_s", int(cfg.RunDeadline.Seconds()))
	v.SetDefault("stream_hwm", cfg.StreamHWM)
	v.SetDefault("checkpoint_store", cfg.CheckpointStore)
	v.SetDefault("checkpoint_db_path", cfg.CheckpointDBPath)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return kernel.Config{}, fmt.Errorf("agentkernelctl: reading config file: %w", err)
		}
	}

	return kernel.Config{
		MaxConcurrent:    v.GetInt("max_concurrent"),
		MaxRetries:       v.GetInt("max_retries"),
		RetryPolicy:      retry.BackoffType(v.GetString("retry_policy")),
		BreakerThreshold: v.GetInt("breaker_threshold"),
		BreakerTimeout:   time.Duration(v.GetInt("breaker_timeout_s")) * time.Second,
		AgentTimeout:     time.Duration(v.GetInt("agent_timeout_s")) * time.Second,
		RunDeadline:      time.Duration(v.GetInt("run_deadline_s")) * time.Second,
		StreamHWM:        v.GetInt("stream_hwm"),
		CheckpointStore:  v.GetString("checkpoint_store"),
		CheckpointDBPath: v.GetString("checkpoint_db_path"),
	}, nil
}

func buildKernel(cfg kernel.Config) (*kernel.Kernel, *logging.KernelLogger, error) {
	logger := logging.NewLogger(logging.DefaultConfig())
	registry := core.NewRegistry()
	agents.RegisterAll(registry)

	k, err := kernel.New(plan.NewSupervisor(nil), registry, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("agentkernelctl: building kernel: %w", err)
	}
	return k, logger, nil
}
