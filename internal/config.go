package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bountyhooks/pkg/providers/github"
	"bountyhooks/pkg/storage/gormstore"
	"bountyhooks/pkg/tasks"
)

// AppConfig represents the main application configuration.
type AppConfig struct {
	// Server holds server-specific configuration.
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
		WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
		IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
		ReadHeaderMS   int64  `yaml:"read_header_timeout_ms"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		RateLimitRPS   int64  `yaml:"rate_limit_rps"`
		RateLimitBurst int64  `yaml:"rate_limit_burst"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		MetricsPath    string `yaml:"metrics_path"`
		WebhookPath    string `yaml:"webhook_path"`
	} `yaml:"server"`
	// GitHub configures the REST client used to read issues and timelines.
	GitHub github.Config `yaml:"github"`
	Bounty struct {
		Label string `yaml:"label"`
	} `yaml:"bounty"`
	Storage gormstore.Config `yaml:"storage"`
	Tasks   tasks.Config     `yaml:"tasks"`
	// Repositories seeds the repository registry on startup.
	Repositories []RepositoryConfig `yaml:"repositories"`
}

// RepositoryConfig registers a repository and its webhook secret.
type RepositoryConfig struct {
	FullName   string `yaml:"full_name"`
	ID         int64  `yaml:"id"`
	Owner      string `yaml:"owner"`
	Name       string `yaml:"name"`
	HookSecret string `yaml:"hook_secret"`
}

// Config represents the application configuration including rules.
type Config struct {
	AppConfig `yaml:",inline"`
	Rules     []Rule `yaml:"rules"`
}

// LoadConfig loads the full application configuration from a YAML file.
// It expands environment variables, applies defaults and normalizes rules
// and repositories.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for an in-memory document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg.AppConfig)
	repos, err := normalizeRepositories(cfg.Repositories)
	if err != nil {
		return cfg, err
	}
	cfg.Repositories = repos
	rules, err := normalizeRules(cfg.Rules)
	if err != nil {
		return cfg, err
	}
	cfg.Rules = rules
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeoutMS == 0 {
		cfg.Server.ReadTimeoutMS = 5000
	}
	if cfg.Server.WriteTimeoutMS == 0 {
		cfg.Server.WriteTimeoutMS = 10000
	}
	if cfg.Server.IdleTimeoutMS == 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}
	if cfg.Server.ReadHeaderMS == 0 {
		cfg.Server.ReadHeaderMS = 5000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	if cfg.GitHub.TimeoutMS == 0 {
		cfg.GitHub.TimeoutMS = 10000
	}
	if strings.TrimSpace(cfg.Bounty.Label) == "" {
		cfg.Bounty.Label = "bounty"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = "bountyhooks.db"
	}
	cfg.Tasks.ApplyDefaults()
}

func normalizeRepositories(repos []RepositoryConfig) ([]RepositoryConfig, error) {
	out := make([]RepositoryConfig, 0, len(repos))
	seen := make(map[string]struct{}, len(repos))
	for i := range repos {
		repo := repos[i]
		repo.FullName = strings.TrimSpace(repo.FullName)
		repo.Owner = strings.TrimSpace(repo.Owner)
		repo.Name = strings.TrimSpace(repo.Name)
		if repo.FullName == "" && repo.Owner != "" && repo.Name != "" {
			repo.FullName = repo.Owner + "/" + repo.Name
		}
		if repo.FullName == "" {
			return nil, fmt.Errorf("repository %d is missing full_name", i)
		}
		if repo.Owner == "" || repo.Name == "" {
			owner, name, ok := strings.Cut(repo.FullName, "/")
			if !ok || owner == "" || name == "" {
				return nil, fmt.Errorf("repository %d: full_name %q is not owner/name", i, repo.FullName)
			}
			if repo.Owner == "" {
				repo.Owner = owner
			}
			if repo.Name == "" {
				repo.Name = name
			}
		}
		if repo.HookSecret == "" {
			return nil, fmt.Errorf("repository %s is missing hook_secret", repo.FullName)
		}
		if _, dup := seen[repo.FullName]; dup {
			return nil, fmt.Errorf("repository %s is declared twice", repo.FullName)
		}
		seen[repo.FullName] = struct{}{}
		out = append(out, repo)
	}
	return out, nil
}

func normalizeRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	var errs []error
	for i := range rules {
		rule := rules[i]
		rule.When = strings.TrimSpace(rule.When)
		emit := make(EmitList, 0, len(rule.Emit))
		for _, topic := range rule.Emit {
			if trimmed := strings.TrimSpace(topic); trimmed != "" {
				emit = append(emit, trimmed)
			}
		}
		rule.Emit = emit
		if rule.When == "" || len(rule.Emit) == 0 {
			errs = append(errs, fmt.Errorf("rule %d is missing when or emit", i))
			continue
		}
		out = append(out, rule)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
