package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/opsline/checkline/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and background jobs",
		Long:  "Serves the WhatsApp webhook, sweeps expired sessions, and sends idle reminders until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "checkline.yaml", "path to Checkline config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	engine, wa, err := buildEngine(ctx, cfg, gormDB)
	if err != nil {
		return err
	}

	// Background jobs: lazy expiry on inbound messages still works without
	// these; the crons keep silent sessions from lingering.
	scheduler := cron.New()
	if cfg.Session.SweepCron != "" {
		_, err := scheduler.AddFunc(cfg.Session.SweepCron, func() {
			if _, err := engine.SweepExpired(ctx); err != nil {
				log.Printf("checkline: sweep: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule sweep %q: %w", cfg.Session.SweepCron, err)
		}
	}
	if cfg.Session.ReminderCron != "" {
		idle := time.Duration(cfg.Session.ReminderIdleM) * time.Minute
		_, err := scheduler.AddFunc(cfg.Session.ReminderCron, func() {
			if _, err := engine.RemindIdle(ctx, idle); err != nil {
				log.Printf("checkline: remind idle: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule reminders %q: %w", cfg.Session.ReminderCron, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if port <= 0 {
		port = cfg.Server.Port
	}
	return webhook.Start(ctx, webhook.StartOpts{
		Handler:     engine,
		Media:       wa,
		VerifyToken: cfg.WhatsApp.VerifyToken,
		Port:        port,
		Out:         out,
	})
}
