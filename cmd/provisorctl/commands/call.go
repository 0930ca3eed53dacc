package commands

import (
	"fmt"
	"os"

	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/output"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <provider>.<tool> [key=value...]",
	Short: "Call a tool on a provider, loading it first if needed",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		providerName, toolName, ok := splitTarget(args[0])
		if !ok {
			fmt.Println("Error: invalid target format, use provider.tool")
			os.Exit(1)
		}

		toolArgs := parseArgs(args[1:])
		result, err := client().Call(providerName, toolName, toolArgs)
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		fmt.Println(formatter().FormatResult(output.NewCallResult(result)))
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
