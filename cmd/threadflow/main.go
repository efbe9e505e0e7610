// Package main provides the threadflow binary entry point.
// Threadflow is the thread and context management engine behind chained
// AI-prompt workflow nodes: it owns conversation threads, bounds their
// growth, and merges context flowing between nodes.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "threadflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "threadflow",
		Short: "Conversation thread and context engine",
		Long: `Threadflow manages the conversation threads flowing between chained
AI-prompt nodes in a workflow.

It provides:
- Authoritative thread storage with bounded history windows
- One-time brand-voice (persona) injection at thread creation
- Deterministic merging of context from multiple upstream nodes
- Self-healing appends when a referenced thread no longer exists`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(demoCmd(&configPath, &logLevel))
	cmd.AddCommand(configCmd(&logLevel))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
