package main

import (
	"fmt"
	"os"

	"mcq-worker/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcqctl",
	Short: "Operator tool for the MCQ worker",
	Long: `mcqctl talks to the same transport, cache and database as the worker.

Examples:
  mcqctl enqueue https://files.example.com/notes.pdf --count 10
  mcqctl preprocess notes.pdf
  mcqctl fallback notes.txt --count 3 --seed 42
  mcqctl progress 01J8Z...
  mcqctl release 01J8Z...
  mcqctl schema --apply`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(fallbackCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
