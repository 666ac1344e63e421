package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/jsontab"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jsontab %s (%s)\n", Version, runtime.Version())
			fmt.Fprintf(out, "drivers: %s\n", strings.Join(jsontab.JSONDriverNames(), ", "))
		},
	}
}
