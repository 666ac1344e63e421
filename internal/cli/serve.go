package cli

import (
	"github.com/spf13/cobra"

	"github.com/reoring/jsontab/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr, root string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Starts the HTTP API. POST /v1/convert converts a file below --root (or
JSONTAB_SERVER_ROOT), GET /v1/status reports the conversion limiter. The server stops on SIGINT or
SIGTERM after running conversions finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("root") {
				a.cfg.Server.Root = root
			}
			s, err := server.New(a.cfg)
			if err != nil {
				return err
			}
			return s.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config, :8080)")
	cmd.Flags().StringVar(&root, "root", "", "directory that request paths must stay within")
	return cmd
}
