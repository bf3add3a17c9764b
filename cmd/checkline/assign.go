package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsline/checkline/internal/models"
)

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Manage checklist assignments",
	}

	cmd.AddCommand(newAssignCreateCmd())
	cmd.AddCommand(newAssignListCmd())
	cmd.AddCommand(newAssignSendCmd())
	return cmd
}

func newAssignCreateCmd() *cobra.Command {
	var (
		configPath string
		templateID uint
		machineID  uint
		operatorID uint
		dueIn      time.Duration
		send       bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a checklist assignment",
		Long:  "Creates an assignment binding a checklist template to a machine and operator, optionally dispatching it over WhatsApp immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			assignment := models.ChecklistAssignment{
				TemplateID: templateID,
				MachineID:  machineID,
				OperatorID: operatorID,
				Status:     models.AssignmentPending,
			}
			if dueIn > 0 {
				due := time.Now().Add(dueIn)
				assignment.DueAt = &due
			}
			if err := gormDB.Create(&assignment).Error; err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}
			fmt.Fprintf(out, "Created assignment %d (template %d, machine %d, operator %d)\n",
				assignment.ID, templateID, machineID, operatorID)

			if !send {
				return nil
			}

			engine, _, err := buildEngine(cmd.Context(), cfg, gormDB)
			if err != nil {
				return err
			}
			sessionID, err := engine.StartAssignment(cmd.Context(), assignment.ID)
			if err != nil {
				return fmt.Errorf("dispatch assignment %d: %w", assignment.ID, err)
			}
			fmt.Fprintf(out, "Dispatched assignment %d as session %d\n", assignment.ID, sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	cmd.Flags().UintVar(&templateID, "template", 0, "checklist template ID")
	cmd.Flags().UintVar(&machineID, "machine", 0, "machine ID")
	cmd.Flags().UintVar(&operatorID, "operator", 0, "operator ID")
	cmd.Flags().DurationVar(&dueIn, "due-in", 0, "due window from now (e.g. 8h)")
	cmd.Flags().BoolVar(&send, "send", false, "dispatch to the operator immediately")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("machine")
	cmd.MarkFlagRequired("operator")
	return cmd
}

func newAssignListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checklist assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			query := gormDB.Preload("Template").Preload("Machine").Preload("Operator").
				Order("id DESC").Limit(50)
			if status != "" {
				query = query.Where("status = ?", status)
			}

			var assignments []models.ChecklistAssignment
			if err := query.Find(&assignments).Error; err != nil {
				return fmt.Errorf("list assignments: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(assignments) == 0 {
				fmt.Fprintln(out, "No assignments found.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-24s %-12s %-16s %-10s %s\n",
				"ID", "TEMPLATE", "MACHINE", "OPERATOR", "STATUS", "DUE")
			for _, a := range assignments {
				due := "-"
				if a.DueAt != nil {
					due = a.DueAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%-5d %-24s %-12s %-16s %-10s %s\n",
					a.ID, a.Template.Name, a.Machine.Name, a.Operator.Name, a.Status, due)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, sent, completed, overdue)")
	return cmd
}

func newAssignSendCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "send <assignment-id>",
		Short: "Dispatch an assignment to its operator over WhatsApp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid assignment id %q", args[0])
			}

			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			engine, _, err := buildEngine(cmd.Context(), cfg, gormDB)
			if err != nil {
				return err
			}

			sessionID, err := engine.StartAssignment(cmd.Context(), uint(id))
			if err != nil {
				return fmt.Errorf("dispatch assignment %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dispatched assignment %d as session %d\n", id, sessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	return cmd
}
