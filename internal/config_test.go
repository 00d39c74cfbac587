package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.WebhookPath != "/webhook" {
		t.Fatalf("expected default webhook path, got %q", cfg.Server.WebhookPath)
	}
	if cfg.Bounty.Label != "bounty" {
		t.Fatalf("expected default bounty label, got %q", cfg.Bounty.Label)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "bountyhooks.db" {
		t.Fatalf("expected sqlite storage default, got %q %q", cfg.Storage.Driver, cfg.Storage.DSN)
	}
	if cfg.Tasks.Driver != "gochannel" {
		t.Fatalf("expected default task driver, got %q", cfg.Tasks.Driver)
	}
	if cfg.Tasks.MaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Tasks.MaxAttempts)
	}
	if cfg.GitHub.TimeoutMS != 10000 {
		t.Fatalf("expected default github timeout, got %d", cfg.GitHub.TimeoutMS)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("BOUNTY_HOOK_SECRET", "s3cret")
	cfg, err := LoadConfig(writeConfig(t, "repositories:\n  - full_name: acme/widgets\n    id: 7\n    hook_secret: ${BOUNTY_HOOK_SECRET}\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Repositories) != 1 {
		t.Fatalf("expected one repository, got %d", len(cfg.Repositories))
	}
	repo := cfg.Repositories[0]
	if repo.HookSecret != "s3cret" {
		t.Fatalf("expected expanded secret, got %q", repo.HookSecret)
	}
	if repo.Owner != "acme" || repo.Name != "widgets" {
		t.Fatalf("expected owner/name split, got %q %q", repo.Owner, repo.Name)
	}
}

func TestLoadConfigRejectsRepositoryWithoutSecret(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "repositories:\n  - full_name: acme/widgets\n")); err == nil {
		t.Fatalf("expected error for missing hook_secret")
	}
}

func TestLoadConfigRejectsDuplicateRepository(t *testing.T) {
	content := "repositories:\n" +
		"  - full_name: acme/widgets\n    hook_secret: a\n" +
		"  - owner: acme\n    name: widgets\n    hook_secret: b\n"
	if _, err := LoadConfig(writeConfig(t, content)); err == nil {
		t.Fatalf("expected error for duplicate repository")
	}
}

func TestLoadConfigInvalidRule(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "rules:\n  - when: action == \"opened\"\n")); err == nil {
		t.Fatalf("expected error for missing emit")
	}
}

func TestLoadConfigTrimsRuleFields(t *testing.T) {
	content := "rules:\n  - when: \"  action == \\\"opened\\\"  \"\n    emit: \"  claims.opened  \"\n"
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Rules[0].When != "action == \"opened\"" {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[0].When)
	}
	if len(cfg.Rules[0].Emit) != 1 || cfg.Rules[0].Emit[0] != "claims.opened" {
		t.Fatalf("expected trimmed emit, got %v", cfg.Rules[0].Emit)
	}
}

func TestLoadConfigEmitList(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "rules:\n  - when: \"true\"\n    emit: [a, b]\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Rules[0].Emit) != 2 {
		t.Fatalf("expected two topics, got %v", cfg.Rules[0].Emit)
	}
}
