package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opsline/checkline/internal/models"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect conversation sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			query := gormDB.Order("id DESC").Limit(50)
			if status != "" {
				query = query.Where("status = ?", status)
			}

			var sessions []models.ConversationSession
			if err := query.Find(&sessions).Error; err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-16s %-22s %-9s %-18s %s\n",
				"ID", "PHONE", "STATUS", "TASK", "LAST MESSAGE", "EXPIRES")
			for _, s := range sessions {
				fmt.Fprintf(out, "%-5d %-16s %-22s %d/%-7d %-18s %s\n",
					s.ID, s.PhoneNumber, s.Status, s.CurrentTaskIndex, s.TotalTasks,
					s.LastMessageAt.Format("2006-01-02 15:04"),
					s.ExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, awaiting_confirmation, completed, expired)")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session and its recorded answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var session models.ConversationSession
			if err := gormDB.First(&session, uint(id)).Error; err != nil {
				return fmt.Errorf("session %d: %w", id, err)
			}
			var answers []models.SessionAnswer
			if err := gormDB.Where("session_id = ?", session.ID).
				Order("task_index ASC").Find(&answers).Error; err != nil {
				return fmt.Errorf("session %d answers: %w", id, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %d\n", session.ID)
			fmt.Fprintf(out, "  Phone:    %s\n", session.PhoneNumber)
			fmt.Fprintf(out, "  Status:   %s\n", session.Status)
			fmt.Fprintf(out, "  Progress: %d/%d\n", session.CurrentTaskIndex, session.TotalTasks)
			fmt.Fprintf(out, "  Expires:  %s\n", session.ExpiresAt.Format("2006-01-02 15:04"))
			if session.CompletedAt != nil {
				fmt.Fprintf(out, "  Completed: %s\n", session.CompletedAt.Format("2006-01-02 15:04"))
			}

			if len(answers) == 0 {
				fmt.Fprintln(out, "\nNo answers recorded.")
				return nil
			}
			fmt.Fprintln(out, "\nAnswers:")
			for _, a := range answers {
				line := fmt.Sprintf("  %d. %s: %s", a.TaskIndex+1, a.TaskName, a.Result)
				if a.Remarks != "" {
					line += fmt.Sprintf(" (%s)", a.Remarks)
				}
				if a.PhotoURL != "" {
					line += " [photo]"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	return cmd
}
