// Package commands implements provisorctl's cobra command tree: a thin
// client over a running provisord's HostGateway.
package commands

import (
	"github.com/brightloop/provisor/internal/cliclient"
	"github.com/brightloop/provisor/internal/output"
	"github.com/spf13/cobra"
)

var (
	addr       string
	jsonOutput bool
	rawOutput  bool
	timeoutMS  int
)

var rootCmd = &cobra.Command{
	Use:   "provisorctl",
	Short: "provisorctl - control a running provisord",
	Long: `provisorctl drives a running provisord over its local HostGateway:
loading and unloading tool providers, calling their tools, and listing
what is currently available.`,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8710", "provisord host gateway address")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&rawOutput, "raw", false, "raw output (no formatting)")
	rootCmd.PersistentFlags().IntVar(&timeoutMS, "timeout", 30000, "request timeout in milliseconds")
}

func client() *cliclient.Client {
	return cliclient.New(addr, timeoutMSDuration())
}

func formatter() *output.Formatter {
	format := output.FormatText
	switch {
	case jsonOutput:
		format = output.FormatJSON
	case rawOutput:
		format = output.FormatRaw
	}
	return output.NewFormatter(format, true)
}
