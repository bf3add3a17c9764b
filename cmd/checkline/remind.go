package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRemindCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remind <session-id>",
		Short: "Send a reminder for an active session",
		Long:  "Re-sends the current task question to the operator of an active session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			engine, _, err := buildEngine(cmd.Context(), cfg, gormDB)
			if err != nil {
				return err
			}

			if err := engine.Remind(cmd.Context(), uint(id)); err != nil {
				return fmt.Errorf("remind session %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder sent for session %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	return cmd
}
