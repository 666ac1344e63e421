package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/internal/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Convert documents written into a directory",
		Long: `Watches a directory and converts every *.json file (optionally compressed)
that is created or rewritten there. The schema is written next to each artifact
as <artifact>.schema.json. The directory defaults to watch.dir from the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wc := a.cfg.Watch
			if len(args) == 1 {
				wc.Dir = args[0]
			}
			if wc.Dir == "" {
				return errors.New("watch: no directory given")
			}
			if cmd.Flags().Changed("debounce") {
				if debounce < 0 {
					return fmt.Errorf("--debounce must be non-negative, got %s", debounce)
				}
				wc.Debounce = debounce
			}
			opt, err := a.cfg.Convert.Options()
			if err != nil {
				return err
			}
			w := watch.New(wc.Dir, jsontab.New(opt), watch.Options{
				Debounce: wc.Debounce,
				Input:    a.cfg.Convert.Input,
				Logger:   slog.Default(),
			})
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period after the last write, e.g. 250ms")
	return cmd
}
