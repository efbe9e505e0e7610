package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/c360studio/threadflow/config"
	"github.com/c360studio/threadflow/events"
	"github.com/c360studio/threadflow/merge"
	"github.com/c360studio/threadflow/message"
	"github.com/c360studio/threadflow/metrics"
	"github.com/c360studio/threadflow/node"
	"github.com/c360studio/threadflow/thread"
)

// setupLogger configures the process logger from the --log-level flag.
func setupLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads configuration from an explicit path or the layered
// loader.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}

// buildEngine assembles the manager and merge engine from config.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*thread.Manager, *merge.Engine, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanup := func() {}

	var publisher events.Publisher
	if cfg.Events.NATSURL != "" {
		nc, err := nats.Connect(cfg.Events.NATSURL, nats.Name(appName))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		publisher = events.NewNATSPublisher(nc, cfg.Events.SubjectPrefix)
		cleanup = nc.Close
		logger.Info("Event tap connected", "url", cfg.Events.NATSURL, "prefix", cfg.Events.SubjectPrefix)
	}

	var mx *metrics.Metrics
	if cfg.MetricsEnabled() {
		mx = metrics.New(prometheus.DefaultRegisterer)
	}

	mgrOpts := []thread.Option{thread.WithLogger(logger)}
	mergeOpts := []merge.Option{merge.WithLogger(logger)}
	if publisher != nil {
		mgrOpts = append(mgrOpts, thread.WithPublisher(publisher))
		mergeOpts = append(mergeOpts, merge.WithPublisher(publisher))
	}
	if mx != nil {
		mgrOpts = append(mgrOpts, thread.WithMetrics(mx))
		mergeOpts = append(mergeOpts, merge.WithMetrics(mx))
	}

	mgr := thread.NewManager(thread.NewStore(cfg.Thread.WindowCap), mgrOpts...)
	merger := merge.NewEngine(mergeOpts...)

	return mgr, merger, cleanup, nil
}

// resolvePersona returns the persona text, preferring a persona file when
// configured.
func resolvePersona(cfg *config.Config, logger *slog.Logger) (string, func(), error) {
	if cfg.Persona.File != "" {
		src, err := thread.NewFilePersona(cfg.Persona.File, logger)
		if err != nil {
			return "", nil, err
		}
		return src.Persona(), func() { _ = src.Close() }, nil
	}
	return cfg.Persona.Text, func() {}, nil
}

func demoCmd(configPath, logLevel *string) *cobra.Command {
	var persona string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted workflow through the engine",
		Long: `Demo executes a small workflow graph against a scripted generator:
two entry nodes fan into a continuation node, followed by a pass-through
display node. It prints each node's emitted context, which makes thread
resolution and merge order visible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel)

			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			if persona != "" {
				cfg.Persona.Text = persona
				cfg.Persona.File = ""
			}

			mgr, merger, cleanup, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			personaText, closePersona, err := resolvePersona(cfg, logger)
			if err != nil {
				return err
			}
			defer closePersona()

			return runDemo(cmd.Context(), mgr, merger, personaText, logger)
		},
	}

	cmd.Flags().StringVar(&persona, "persona", "", "Brand-voice persona for entry nodes (overrides config)")

	return cmd
}

// runDemo wires and executes the demo graph.
func runDemo(ctx context.Context, mgr *thread.Manager, merger *merge.Engine, persona string, logger *slog.Logger) error {
	gen := node.NewScriptedGenerator(
		"Summary of the quarterly numbers: revenue up 12%.",
		"Draft announcement: we grew 12% this quarter.",
		"Combined: revenue up 12%; announcement drafted accordingly.",
	)

	runner := node.NewRunner(logger)
	runner.Add(node.NewEntryNode("summarize", persona, "Summarize the quarterly numbers", mgr, gen, logger))
	runner.Add(node.NewEntryNode("announce", persona, "Draft the announcement", mgr, gen, logger))
	runner.Add(node.NewContinuationNode("combine", "Combine both results", mgr, merger, gen, logger), "summarize", "announce")
	runner.Add(node.NewPassthroughNode("display", merger), "combine")

	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run demo workflow: %w", err)
	}

	for _, id := range []string{"summarize", "announce", "combine", "display"} {
		printContext(id, results[id])
	}

	fmt.Printf("threads in store: %d  session: %s\n", mgr.ThreadCount(), mgr.SessionID())
	return nil
}

func printContext(nodeID string, conv message.ConversationContext) {
	fmt.Printf("── node %s  thread=%s  messages=%d\n", nodeID, conv.ThreadID, len(conv.Messages))
	for _, m := range conv.Messages {
		text := m.Text()
		if r := []rune(text); len(r) > 72 {
			text = string(r[:72]) + "…"
		}
		fmt.Printf("   %-9s %s\n", m.Role, text)
	}
}

func configCmd(logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage threadflow configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default user config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel)
			return config.NewLoader(logger).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel)
			cfg, err := config.NewLoader(logger).Load()
			if err != nil {
				return err
			}
			fmt.Printf("thread.window_cap: %d\n", cfg.Thread.WindowCap)
			fmt.Printf("persona.text: %q\n", cfg.Persona.Text)
			fmt.Printf("persona.file: %q\n", cfg.Persona.File)
			fmt.Printf("events.nats_url: %q\n", cfg.Events.NATSURL)
			fmt.Printf("events.subject_prefix: %s\n", cfg.Events.SubjectPrefix)
			fmt.Printf("metrics.enabled: %t\n", cfg.MetricsEnabled())
			return nil
		},
	})

	return cmd
}
