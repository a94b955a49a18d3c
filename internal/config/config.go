// Package config loads agent settings from an optional YAML file with
// environment-variable overrides. Credentials are expected from the
// environment; the file covers the stable, shareable settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ToolServer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

type Agent struct {
	MaxIterations int     `yaml:"max_iterations"`
	ResultBudget  int     `yaml:"result_budget"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	MaxRetries    int     `yaml:"max_retries"`
}

type OpenAI struct {
	APIKey string `yaml:"-"` // env only
	Model  string `yaml:"model"`
}

type Gateway struct {
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	CACertPath   string `yaml:"ca_cert"`
	TokenURL     string `yaml:"-"` // env only, like the other credentials
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	GrantType    string `yaml:"-"`
	Scope        string `yaml:"-"`
}

type Config struct {
	ToolServer ToolServer `yaml:"tool_server"`
	Agent      Agent      `yaml:"agent"`
	OpenAI     OpenAI     `yaml:"openai"`
	Gateway    Gateway    `yaml:"gateway"`
}

// Default tool server: the Playwright MCP server via npx. A built-in
// Go tool server ships as cmd/toolserver for environments without Node.
func defaults() Config {
	return Config{
		ToolServer: ToolServer{
			Command: "npx",
			Args:    []string{"@playwright/mcp@latest"},
		},
		Agent: Agent{
			MaxIterations: 20,
			ResultBudget:  2000,
			Temperature:   0,
			MaxTokens:     1024,
			MaxRetries:    3,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file when a
// path is given, then environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ToolServer.Command, "WEBAGENT_TOOLSERVER_CMD")
	if v := strings.TrimSpace(os.Getenv("WEBAGENT_TOOLSERVER_ARGS")); v != "" {
		cfg.ToolServer.Args = splitArgs(v)
	}
	setInt(&cfg.Agent.MaxIterations, "WEBAGENT_MAX_ITERATIONS")
	setInt(&cfg.Agent.ResultBudget, "WEBAGENT_RESULT_BUDGET")

	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")

	setString(&cfg.Gateway.BaseURL, "GATEWAY_BASE_URL")
	setString(&cfg.Gateway.Model, "GATEWAY_MODEL")
	setString(&cfg.Gateway.CACertPath, "GATEWAY_CA_CERT")
	setString(&cfg.Gateway.TokenURL, "OAUTH_TOKEN_URL")
	setString(&cfg.Gateway.ClientID, "OAUTH_CLIENT_ID")
	setString(&cfg.Gateway.ClientSecret, "OAUTH_CLIENT_SECRET")
	setString(&cfg.Gateway.GrantType, "OAUTH_GRANT_TYPE")
	setString(&cfg.Gateway.Scope, "OAUTH_SCOPE")
}

// UseGateway reports whether the OAuth gateway adapter should serve
// model calls instead of the direct OpenAI client.
func (c Config) UseGateway() bool {
	return c.Gateway.TokenURL != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// splitArgs splits a command line on whitespace. Single- or
// double-quoted segments stay together, so an argument may contain
// spaces.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	var quote rune
	flush := func() {
		if cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
