package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bobbin/internal/logging"
	"bobbin/internal/services"
	"bobbin/internal/supervisor"
)

const clearScreen = "\x1b[H\x1b[2J"

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show live download status and merge finished split downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if rt.cfg.Supervisor.AutoStartDaemon {
					if err := rt.daemon.EnsureRunning(cmd.Context()); err != nil {
						return err
					}
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				rt.supervisor.OnSnapshot(func(snap supervisor.Snapshot) {
					if colorize {
						fmt.Fprint(stdout, clearScreen)
					}
					fmt.Fprintf(stdout, "bobbin %s  (%s, Ctrl-C to exit)\n", snap.FetchedAt.Format(time.TimeOnly), rt.client.Endpoint())
					fmt.Fprintln(stdout, renderTaskTable(snap, colorize))
				})
				if !rt.merger.Available() {
					logging.WarnWithHint(rt.logger, "merge watcher disabled", "merge_disabled",
						"install ffmpeg to merge split downloads")
				}
				if err := rt.supervisor.Start(cmd.Context()); err != nil {
					return err
				}
				<-cmd.Context().Done()
				rt.supervisor.Close()
				return nil
			})
		},
	}
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge finished split video/audio downloads once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if !rt.merger.Available() {
					return services.Wrap(services.ErrNotInstalled, "merge", "", "ffmpeg not found; install ffmpeg to merge split downloads", nil)
				}
				merged, err := rt.supervisor.MergeTick(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged %d pair(s) in %s\n", merged, rt.supervisor.DownloadDir())
				return nil
			})
		},
	}
}
