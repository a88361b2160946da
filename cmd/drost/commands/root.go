// Package commands implements the drost CLI's cobra command tree.
package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/pkg/protocol"
)

// Version is set at build time via -ldflags "-X .../commands.Version=v1.0.0".
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
var okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

var rootCmd = &cobra.Command{
	Use:   "drost",
	Short: "drost — agentic gateway",
	Long:  "drost: a provider-agnostic agent gateway with durable sessions, orchestrated turns, and a subagent scheduler.",
	Run: func(cmd *cobra.Command, args []string) {
		runStart(uiModeAuto)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: drost.config.json or $DROST_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(restartCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(toolCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("drost %s (schema v%d)\n", Version, protocol.SchemaVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("DROST_CONFIG"); v != "" {
		return v
	}
	return "drost.config.json"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
