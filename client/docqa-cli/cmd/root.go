package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8000"

type options struct {
	server  string
	timeout time.Duration
	json    bool
	client  *apiClient
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "docqa-cli",
		Short: "A CLI client for the DocQA document question answering service",
		Long: `Upload a document to a DocQA server, then ask questions about it.

The server address comes from --server or the DOCQA_SERVER environment variable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.client = newAPIClient(opts.server, opts.timeout)
			return nil
		},
	}

	server := os.Getenv("DOCQA_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", server, "DocQA server base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(
		newFormatsCmd(opts),
		newUploadCmd(opts),
		newAskCmd(opts),
		newSearchCmd(opts),
		newInfoCmd(opts),
		newDeleteCmd(opts),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
