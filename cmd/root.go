// Package cmd implements the CLI commands for DocPipe using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docpipe",
	Short: "DocPipe turns web pages, PDFs and DOCX files into deduplicated content chunks",
	Long: `DocPipe is a staged ingestion pipeline. Each stage reads the previous
stage's directory and writes its own:

  crawl  -> <output>/<env>/local_input_source
  sort   -> <output>/<env>/sorted_documents
  parse  -> <output>/<env>/json_chunks
  embed  -> <output>/<env>/chroma_db

Usage:
  docpipe run --input <url|dir> [flags]`,
}

// Execute runs the root command. Interrupts cancel the running stage.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
