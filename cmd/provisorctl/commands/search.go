package commands

import (
	"fmt"
	"os"

	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List every tool exposed by every loaded provider",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := client().Search()
		if err != nil {
			fmt.Println(formatter().FormatError(perrors.Classify(err)))
			os.Exit(1)
		}
		formatter().FormatTools(entries)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
