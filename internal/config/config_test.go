package config

import (
	"strings"
	"testing"
)

const minimalYAML = `
whatsapp:
  phone_number_id: "123456"
  verify_token: "verify-me"
`

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.WhatsApp.PhoneNumberID != "123456" {
		t.Errorf("phone_number_id = %q", cfg.WhatsApp.PhoneNumberID)
	}
	if cfg.WhatsApp.VerifyToken != "verify-me" {
		t.Errorf("verify_token = %q", cfg.WhatsApp.VerifyToken)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 {
		t.Errorf("database defaults = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Name != "checkline" {
		t.Errorf("database name = %q", cfg.Database.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if !strings.Contains(cfg.WhatsApp.APIBase, "graph.facebook.com") {
		t.Errorf("api base = %q", cfg.WhatsApp.APIBase)
	}
	if cfg.AI.Model == "" {
		t.Error("AI model default missing")
	}
	if cfg.Session.ExpiryHours != 24 {
		t.Errorf("expiry hours = %d, want 24", cfg.Session.ExpiryHours)
	}
	if cfg.Session.SweepCron == "" {
		t.Error("sweep cron default missing")
	}
	if cfg.Session.ReminderIdleM != 120 {
		t.Errorf("reminder idle = %d, want 120", cfg.Session.ReminderIdleM)
	}
}

func TestParse_ExplicitValuesSurviveDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  host: db.internal
  port: 3307
server:
  port: 9090
session:
  expiry_hours: 8
whatsapp:
  phone_number_id: "123456"
  verify_token: "verify-me"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 3307 {
		t.Errorf("database = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Session.ExpiryHours != 8 {
		t.Errorf("expiry hours = %d", cfg.Session.ExpiryHours)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no phone number id", "whatsapp:\n  verify_token: x\n"},
		{"no verify token", "whatsapp:\n  phone_number_id: \"1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParse_NotifierNeedsChannel(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
notify:
  slack:
    bot_token: xoxb-test
`))
	if err == nil {
		t.Fatal("expected error for slack token without channel")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("whatsapp: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParse_EnvOverlay(t *testing.T) {
	t.Setenv("CHECKLINE_DB_PASSWORD", "env-secret")
	t.Setenv("CHECKLINE_WA_TOKEN", "env-wa-token")
	t.Setenv("CHECKLINE_GEMINI_KEY", "env-gemini")

	cfg, err := Parse([]byte(minimalYAML + `
database:
  password: yaml-password
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("password = %q, want env overlay", cfg.Database.Password)
	}
	if cfg.WhatsApp.AccessToken != "env-wa-token" {
		t.Errorf("access token = %q, want env overlay", cfg.WhatsApp.AccessToken)
	}
	if cfg.AI.APIKey != "env-gemini" {
		t.Errorf("AI key = %q, want env overlay", cfg.AI.APIKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
