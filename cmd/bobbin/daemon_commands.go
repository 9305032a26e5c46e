package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bobbin/internal/daemonctl"
	"bobbin/internal/deps"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the aria2 daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stdout := cmd.OutOrStdout()
				if rt.daemon.Running(cmd.Context()) {
					fmt.Fprintln(stdout, "aria2 already running")
					return nil
				}
				fmt.Fprintln(stdout, "aria2 not running, launching...")
				if err := rt.daemon.Spawn(cmd.Context()); err != nil {
					return err
				}
				if handle, ok := rt.daemon.Handle(); ok {
					fmt.Fprintf(stdout, "aria2 started (pid %d, rpc %s)\n", handle.PID, rt.client.Endpoint())
					return nil
				}
				fmt.Fprintln(stdout, "aria2 started")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the aria2 daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stdout := cmd.OutOrStdout()
				result, err := rt.daemon.Stop(cmd.Context())
				if errors.Is(err, daemonctl.ErrNotRunning) {
					fmt.Fprintln(stdout, "aria2 is not running")
					return nil
				}
				if err != nil {
					return err
				}
				if result.PID > 0 {
					fmt.Fprintf(stdout, "Stopping aria2 process (pid %d, %s)...\n", result.PID, result.Method)
				}
				fmt.Fprintln(stdout, "aria2 stopped")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range daemonLines(cmd, rt, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range dependencyLines(deps.CheckBinaries(deps.Requirements(rt.cfg)), colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Paths", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Downloads", statusInfo, rt.cfg.Paths.DownloadDir, colorize))
				fmt.Fprintln(stdout, renderStatusLine("State", statusInfo, rt.cfg.Paths.StateDir, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Logs", statusInfo, rt.cfg.Paths.LogDir, colorize))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func daemonLines(cmd *cobra.Command, rt *runtime, colorize bool) []string {
	state := rt.daemon.State(cmd.Context())
	lines := []string{
		renderStatusLine("aria2", daemonStateKind(state), string(state), colorize),
		renderStatusLine("RPC endpoint", statusInfo, rt.client.Endpoint(), colorize),
		renderStatusLine("Auto start", statusInfo, yesNo(rt.cfg.Supervisor.AutoStartDaemon), colorize),
	}
	if state != daemonctl.StateRunning {
		return lines
	}
	pid := 0
	if handle, ok := rt.daemon.Handle(); ok {
		pid = handle.PID
	} else if discovered, ok := rt.daemon.DiscoverPID(); ok {
		pid = discovered
	}
	if pid > 0 {
		lines = append(lines, renderStatusLine("PID", statusInfo, strconv.Itoa(pid), colorize))
	}
	if version, err := rt.daemon.Version(cmd.Context()); err == nil {
		lines = append(lines, renderStatusLine("Version", statusInfo, version, colorize))
	}
	return lines
}
