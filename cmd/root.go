package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

var (
	// Global flags.
	flagSession   string
	flagTheme     string
	flagPrefix    string
	flagNoSidebar bool
	flagEventLog  string
)

var rootCmd = &cobra.Command{
	Use:   "tabmux",
	Short: "Tabbed terminal frontend for tmux control mode",
	Long: `tabmux attaches to a tmux session over control mode (tmux -C) and
presents its windows as tabs with a sidebar, an in-process terminal
emulator per tab, and prefix-key bindings for tab management.

The session is created when it does not exist. Detaching (prefix d)
leaves the session running; ctrl+q quits and kills the connection.

Configuration is loaded from .tabmux.yaml or environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttach(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", envOrDefault("TABMUX_SESSION", ""), "tmux session name (default: main)")
	rootCmd.Flags().StringVar(&flagTheme, "theme", "", "color theme: dark, light")
	rootCmd.Flags().StringVar(&flagPrefix, "prefix", "", "prefix key (default: ctrl+b)")
	rootCmd.Flags().BoolVar(&flagNoSidebar, "no-sidebar", false, "start with the sidebar hidden")
	rootCmd.Flags().StringVar(&flagEventLog, "event-log", "", "JSONL event journal path (default: XDG state dir)")
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
