package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"doc-splitter/internal/dto"
	"doc-splitter/internal/service"
	"doc-splitter/internal/splitter"
	"doc-splitter/pkg/logger"

	"github.com/spf13/cobra"
)

func analyzeCmd(e *env) *cobra.Command {
	var (
		pagesPath string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Split a page dump and print the invoice groups",
		Long: `Read pages as JSON and print the analysis result. Nothing is stored.

The input has the same shape as the POST /api/v1/analyses body:
  {"document_name": "...", "pages": [{"page_number": 1, "content": "...", "image": "<base64>"}]}`,
		Example: `  doc-splitter analyze --pages pages.json
  cat pages.json | doc-splitter analyze --pages -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			level := "warn"
			if verbose {
				level = "debug"
			}
			cliLogger, err := logger.NewConsole(level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = cliLogger.Sync() }()

			req, err := readAnalyzeRequest(e.stdin, pagesPath)
			if err != nil {
				return err
			}
			pages := req.ToPages()
			if err := service.ValidatePages(pages); err != nil {
				return err
			}

			provider, err := e.newProvider(ctx, &cfg.LLM, cliLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize model provider: %w", err)
			}
			defer provider.Close()

			out := splitter.New(provider, splitterConfig(cfg), cliLogger).Analyze(ctx, pages)
			if out.Fallback {
				cliLogger.Warn("Analysis fell back to a single invoice")
			}

			enc := json.NewEncoder(e.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out.Result)
		},
	}

	cmd.Flags().StringVarP(&pagesPath, "pages", "p", "", "path to the pages JSON file, or - for stdin")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every model call to stderr")
	_ = cmd.MarkFlagRequired("pages")

	return cmd
}

func readAnalyzeRequest(stdin io.Reader, path string) (dto.AnalyzeRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return dto.AnalyzeRequest{}, fmt.Errorf("failed to open pages file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req dto.AnalyzeRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return dto.AnalyzeRequest{}, fmt.Errorf("failed to decode pages: %w", err)
	}
	return req, nil
}
