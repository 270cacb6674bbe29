package bot

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	// Clear the environment variable
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_Optional(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")
	t.Setenv("COMMAND_GUILD_ID", "123456789012345678")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CommandGuildID != "123456789012345678" {
		t.Errorf("expected guild %q, got %q", "123456789012345678", cfg.CommandGuildID)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected level %v, got %v", slog.LevelDebug, cfg.LogLevel)
	}
}

func TestLoadConfig_DefaultLogLevel(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected level %v, got %v", slog.LevelInfo, cfg.LogLevel)
	}
}
