package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bobbin/internal/extractor"
	"bobbin/internal/supervisor"
)

func newDownloadCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newListCommand(ctx),
		newPauseCommand(ctx),
		newResumeCommand(ctx),
		newRemoveCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var qualityFlag string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add an http(s) URL, magnet link, torrent, or video page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				value := strings.TrimSpace(qualityFlag)
				if value == "" {
					value = rt.cfg.Extractor.Quality
				}
				quality, err := extractor.ParseQuality(value)
				if err != nil {
					return err
				}
				result, err := rt.supervisor.Add(cmd.Context(), args[0], quality)
				if err != nil {
					return err
				}
				printAddResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Video quality: best, 1080p, 720p, or audio (default from config)")
	return cmd
}

func printAddResult(cmd *cobra.Command, result supervisor.AddResult) {
	stdout := cmd.OutOrStdout()
	switch {
	case result.Split:
		fmt.Fprintf(stdout, "Queued %s as video %s and audio %s (merged automatically while `bobbin watch` runs, or via `bobbin merge`)\n",
			result.Filename, result.GIDs[0], result.GIDs[1])
	case result.Filename != "":
		fmt.Fprintf(stdout, "Queued %s (%s) as %s\n", result.Filename, result.Kind, result.GIDs[0])
	default:
		fmt.Fprintf(stdout, "Queued %s download as %s\n", result.Kind, result.GIDs[0])
	}
	if result.Degraded {
		fmt.Fprintln(stdout, "ffmpeg not found; downloaded the 720p single-file format instead")
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active, waiting, and stopped downloads",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if err := rt.supervisor.Refresh(cmd.Context()); err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, renderTaskTable(rt.supervisor.Snapshot(), shouldColorize(stdout)))
				return nil
			})
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <gid>...",
		Short: "Pause downloads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				for _, gid := range args {
					if err := rt.supervisor.Pause(cmd.Context(), gid); err != nil {
						return fmt.Errorf("pause %s: %w", gid, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Paused %s\n", gid)
				}
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <gid>...",
		Short: "Resume paused downloads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				for _, gid := range args {
					if err := rt.supervisor.Resume(cmd.Context(), gid); err != nil {
						return fmt.Errorf("resume %s: %w", gid, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Resumed %s\n", gid)
				}
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var deleteFiles bool

	cmd := &cobra.Command{
		Use:     "remove <gid>...",
		Aliases: []string{"rm"},
		Short:   "Remove downloads, optionally deleting their files",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				for _, gid := range args {
					if err := rt.supervisor.RemoveGID(cmd.Context(), gid, deleteFiles); err != nil {
						return fmt.Errorf("remove %s: %w", gid, err)
					}
					if deleteFiles {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %s and deleted its files\n", gid)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", gid)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete downloaded files and control markers")
	return cmd
}
