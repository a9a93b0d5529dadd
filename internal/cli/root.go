package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/maplibre/maplibre-native-go/pkg/buildinfo"
)

// appName is the application name used for directories and display.
const appName = "mln"

// Execute runs the mln CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (render, batch,
// serve, cache), configures logging based on the --verbose flag, and executes
// the command tree against ctx, so an interrupt cancels in-flight renders.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext; library packages report through the observability hooks,
// which the same logger backs.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:           appName,
		Short:         "mln renders MapLibre map tiles",
		Long:          `mln is a toolkit for rendering map tiles from MapLibre styles: one-shot tile and viewport renders, parallel batch rendering across worker processes, and an HTTP tile server.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			installHooks(logger)
			cmd.SetContext(withLogger(cmd.Context(), logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().String("config", "", "config file (default ~/.config/mln/config.toml)")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}

// newVersionCmd creates the version command. The same information backs
// --version; the subcommand exists because that is what people type.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildinfo.String())
		},
	}
}

// tileRef formats a tile coordinate for logs and messages.
func tileRef(zoom uint8, x, y uint32) string {
	return fmt.Sprintf("%d/%d/%d", zoom, x, y)
}

// cacheDir returns the tile cache directory using the XDG standard
// (~/.cache/mln/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configPath returns the explicit --config value, or the default location
// (~/.config/mln/config.toml) when it exists, or "" for no config file.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", appName, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
