package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/salpanel/internal/app"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/panel"
	"github.com/justyntemme/salpanel/internal/pluginfs"
	"github.com/justyntemme/salpanel/internal/pluginfs/memfs"
)

type lsOptions struct {
	focusFile bool
	memFrom   string
	watch     bool
	record    bool
	resume    bool
	limit     int
}

var lsOpts lsOptions

var lsCmd = &cobra.Command{
	Use:   "ls <location>...",
	Short: "Navigate a panel through locations and print what it shows",
	Long: `Navigate one panel through each location in turn and print the outcome of
every step followed by the final listing.

Locations are disk paths (relative ones resolve against the panel's current
directory), paths into archives such as backup.zip/docs, or plugin paths such
as mem:/docs and s3:/bucket/prefix. With --resume the panel starts where the
last recorded run left it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !lsOpts.resume {
			return errors.New("requires at least 1 location or --resume")
		}
		return nil
	},
	GroupID: "navigation",
	RunE:    runLs,
}

func init() {
	lsCmd.Flags().BoolVar(&lsOpts.focusFile, "focus-file", true, "A path naming a file opens its directory with the file focused")
	lsCmd.Flags().StringVar(&lsOpts.memFrom, "mem-from", "", "Mirror this disk directory as the mem: filesystem")
	lsCmd.Flags().BoolVar(&lsOpts.watch, "watch", false, "Keep running and print the listing again whenever it changes")
	lsCmd.Flags().BoolVar(&lsOpts.record, "record", false, "Record visited locations in the persisted history")
	lsCmd.Flags().BoolVar(&lsOpts.resume, "resume", false, "Start from the location the last recorded run ended in")
	lsCmd.Flags().IntVar(&lsOpts.limit, "limit", 0, "Print at most this many entries (0 prints all)")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts := app.Options{
		Watch:     lsOpts.watch,
		NoPersist: !lsOpts.record && !lsOpts.resume,
		NoIcons:   true,
		Deps: panel.Deps{
			Metrics:  current.metrics,
			Prompter: &cliPrompter{w: cmd.ErrOrStderr()},
		},
	}
	if lsOpts.memFrom != "" {
		vol := memfs.NewVolume()
		files, dirs, err := vol.Import(lsOpts.memFrom)
		if err != nil {
			return fmt.Errorf("mirror %s: %w", lsOpts.memFrom, err)
		}
		dimColor.Fprintf(cmd.ErrOrStderr(), "mem: holds %d files in %d directories\n", files, dirs)
		opts.Memory = vol
	}

	nc, err := app.New(ctx, current.cfg, opts)
	if err != nil {
		return err
	}
	defer nc.Close(context.Background())

	out := cmd.OutOrStdout()
	p := nc.Left
	if lsOpts.resume {
		saved := nc.SavedPath(pluginfs.SideLeft)
		if saved == "" {
			return errors.New("no recorded location to resume; run ls --record first")
		}
		args = append([]string{saved}, args...)
	}
	for _, input := range args {
		po := panel.NewOptions()
		po.CanFocusFileName = lsOpts.focusFile
		res := nc.ChangePath(ctx, pluginfs.SideLeft, resolveInput(p, input), po)
		printResult(out, input, res)
		if lsOpts.record && !res.NoChange {
			p.SetUserWorkedOnThisPath(true)
		}
	}
	printListing(out, p, lsOpts.limit)

	if !lsOpts.watch {
		return nil
	}
	return watchListing(ctx, nc, cmd)
}

// resolveInput anchors a relative disk path at the working directory while
// the panel has not been anywhere yet.
func resolveInput(p *panel.Panel, input string) string {
	input = strings.TrimSpace(input)
	if p.GetPath() != "" || input == "" || strings.HasPrefix(input, "~") || fs.IsAbsolute(input) {
		return input
	}
	if _, _, ok := location.SplitFSPath(input); ok {
		return input
	}
	wd, err := os.Getwd()
	if err != nil {
		return input
	}
	return fs.Join(wd, input)
}

// watchListing runs the navigation loop and reprints the listing after each
// background refresh until interrupted.
func watchListing(ctx context.Context, nc *app.NavigationContext, cmd *cobra.Command) error {
	done := make(chan error, 1)
	go func() { done <- nc.Run(ctx) }()

	out := cmd.OutOrStdout()
	last := nc.Left.Generation()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case <-ticker.C:
			err := nc.Do(ctx, func() {
				if gen := nc.Left.Generation(); gen != last {
					last = gen
					fmt.Fprintln(out)
					printListing(out, nc.Left, lsOpts.limit)
				}
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}
