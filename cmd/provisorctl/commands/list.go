package commands

import (
	"fmt"
	"os"

	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently loaded providers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := client().ListLoaded()
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		formatter().FormatServers(infos)
	},
}

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "List every configured provider, loaded or not",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names, err := client().Available()
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		formatter().FormatAvailable(names)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, availableCmd)
}
