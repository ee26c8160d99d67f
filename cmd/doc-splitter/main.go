package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/splitter"
	"doc-splitter/pkg/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Injected at build time via ldflags.
var version = "dev"

// env holds the dependencies commands reach for, replaceable in tests.
type env struct {
	loadConfig  func() (*config.Config, error)
	newProvider func(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (llm.Provider, error)
	stdin       io.Reader
	stdout      io.Writer
}

func defaultEnv() *env {
	return &env{
		loadConfig:  config.Load,
		newProvider: llm.New,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd(defaultEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doc-splitter",
		Short:         "Split scanned PDFs into individual invoices",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(serveCmd(e))
	cmd.AddCommand(analyzeCmd(e))
	cmd.AddCommand(tokenCmd(e))

	return cmd
}

func splitterConfig(cfg *config.Config) splitter.Config {
	c := splitter.DefaultConfig()
	c.BoundaryThreshold = cfg.Splitter.BoundaryThreshold
	c.PairExcerptChars = cfg.Splitter.PairExcerptChars
	c.BatchPageChars = cfg.Splitter.BatchPageChars
	return c
}
