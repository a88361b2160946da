package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/restart"
)

// restartCmd requests a manual restart against this config's restart
// history and budget window. It does not reach into a running process;
// a running gateway observes the same history file and exits with
// restart.RestartExitCode when its own controller admits the request.
func restartCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Request a manual restart, subject to the configured budget window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctl := restart.New(restart.Policy{
				RequireApprovalForSelfModify: cfg.Restart.RequireApprovalForSelfMod,
				MaxRestarts:                  cfg.Restart.MaxRestartsPerWindow,
				WindowMs:                     cfg.Restart.WindowMs,
			}, config.ExpandHome(cfg.Restart.HistoryPath), nil, nil, nil, nil, func(int) {})

			result := ctl.RequestRestart(restart.Request{
				Intent: restart.IntentManual,
				Reason: reason,
			})
			if result.OK {
				fmt.Println(okStyle.Render("restart admitted: " + result.Code))
				return nil
			}
			fmt.Println(warnStyle.Render("restart rejected: " + result.Code))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual restart via CLI", "restart reason recorded in history")
	return cmd
}
