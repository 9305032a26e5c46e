package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bobbin/internal/aria2"
	"bobbin/internal/config"
)

const rpcProbeTimeout = 2 * time.Second

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit download_dir (or export BOBBIN_DOWNLOAD_DIR) and set an rpc_secret before starting aria2.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration, download directory, and RPC port",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			if err := checkWritable(cfg.Paths.DownloadDir); err != nil {
				return fmt.Errorf("download_dir %s is not writable: %w", cfg.Paths.DownloadDir, err)
			}
			fmt.Fprintf(out, "Download dir: %s (writable)\n", cfg.Paths.DownloadDir)

			portState, err := probeRPCPort(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "RPC endpoint: %s (%s)\n", cfg.RPCURL(), portState)
			if strings.TrimSpace(cfg.Aria2.RPCSecret) == "" {
				fmt.Fprintln(out, "RPC secret: not set; any local process can control aria2")
			} else {
				fmt.Fprintln(out, "RPC secret: set")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// checkWritable creates and removes a scratch file in dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".bobbin-write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	closeErr := f.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	return closeErr
}

// probeRPCPort reports whether aria2 answers on the configured port, the
// port is free for a spawn, or something else holds it. The last case and a
// secret aria2 rejects are errors since no bobbin command could work.
func probeRPCPort(ctx context.Context, cfg *config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcProbeTimeout)
	defer cancel()

	version, err := aria2.NewFromConfig(cfg).GetVersion(ctx)
	if err == nil {
		return "aria2 " + version.Version + " responding", nil
	}
	var rpcErr *aria2.RPCError
	if errors.As(err, &rpcErr) {
		return "", fmt.Errorf("aria2 on port %d rejected the request (%s); check aria2.rpc_secret", cfg.Aria2.RPCPort, rpcErr.Message)
	}
	conn, dialErr := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Aria2.RPCPort)), rpcProbeTimeout)
	if dialErr != nil {
		return "free; aria2 not running", nil
	}
	_ = conn.Close()
	return "", fmt.Errorf("port %d is in use by a service that is not aria2; change aria2.rpc_port", cfg.Aria2.RPCPort)
}
