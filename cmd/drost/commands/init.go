package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/config"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Run: func(cmd *cobra.Command, args []string) {
			runInit(resolveConfigPath(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(path string, force bool) {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Println(warnStyle.Render(fmt.Sprintf("config already exists at %s (use --force to overwrite)", path)))
		os.Exit(1)
	}

	cfg := config.Default()
	if err := config.Save(path, cfg); err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("write config: %s", err)))
		os.Exit(1)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("wrote default config to %s", path)))
}
