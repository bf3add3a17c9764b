package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/opsline/checkline/internal/config"
	"github.com/opsline/checkline/internal/conversation"
	"github.com/opsline/checkline/internal/db"
	"github.com/opsline/checkline/internal/interpret"
	"github.com/opsline/checkline/internal/notify"
	discordnotify "github.com/opsline/checkline/internal/notify/discord"
	slacknotify "github.com/opsline/checkline/internal/notify/slack"
	"github.com/opsline/checkline/internal/transport/whatsapp"
)

// connectFromConfig loads the config file and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Database.Name, err)
	}
	return cfg, gormDB, nil
}

// buildEngine wires the conversation engine from configuration: the real
// WhatsApp transport, the two-tier interpreter, and whichever supervisor
// notifiers are configured.
func buildEngine(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (*conversation.Engine, *whatsapp.Client, error) {
	wa, err := whatsapp.New(whatsapp.ClientOpts{
		APIBase:       cfg.WhatsApp.APIBase,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		MediaDir:      cfg.Server.MediaDir,
	})
	if err != nil {
		return nil, nil, err
	}

	var primary interpret.Interpreter
	if cfg.AI.APIKey != "" {
		gemini, err := interpret.NewGemini(ctx, interpret.GeminiOpts{
			APIKey: cfg.AI.APIKey,
			Model:  cfg.AI.Model,
		})
		if err != nil {
			// The keyword tier carries the conversation on its own.
			log.Printf("checkline: AI interpreter unavailable, using keyword rules: %v", err)
		} else {
			primary = gemini
		}
	}

	engine, err := conversation.NewEngine(conversation.EngineOpts{
		DB:           gormDB,
		Transport:    wa,
		Interpreter:  interpret.NewTwoTier(primary),
		Notifier:     buildNotifier(cfg),
		ExpiryWindow: time.Duration(cfg.Session.ExpiryHours) * time.Hour,
	})
	if err != nil {
		return nil, nil, err
	}
	return engine, wa, nil
}

// buildNotifier assembles the supervisor notifier fanout from config.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notify.Slack.BotToken != "" {
		n, err := slacknotify.New(slacknotify.NotifierOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			log.Printf("checkline: slack notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}
	if cfg.Notify.Discord.BotToken != "" {
		n, err := discordnotify.New(discordnotify.NotifierOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			log.Printf("checkline: discord notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}
	if len(notifiers) == 0 {
		return notify.Noop{}
	}
	return notify.Fanout{Notifiers: notifiers}
}
