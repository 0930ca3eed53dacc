package commands

import (
	"fmt"
	"os"

	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <provider>",
	Short: "Load a tool provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().Load(args[0])
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		fmt.Println(formatter().FormatResult(newResultFromTools(result.Tools)))
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload <provider>",
	Short: "Unload a tool provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := client().Unload(args[0]); err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		fmt.Printf("unloaded %s\n", args[0])
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload <provider>",
	Short: "Unload then load a tool provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().Reload(args[0])
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		fmt.Println(formatter().FormatResult(newResultFromTools(result.Tools)))
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <provider>",
	Short: "Re-run tool discovery on a loaded provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := client().Refresh(args[0])
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		fmt.Println(formatter().FormatResult(newResultFromTools(result.Tools)))
	},
}

func init() {
	rootCmd.AddCommand(loadCmd, unloadCmd, reloadCmd, refreshCmd)
}
