package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the application configuration. It is loaded once at startup and
// injected into each component at construction; nothing reads it through
// package globals.
type Config struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	Monitor    MonitorConfig    `koanf:"monitor"`
	Generation GenerationConfig `koanf:"generation"`
	Router     RouterConfig     `koanf:"router"`
	Ntfy       NtfyConfig       `koanf:"ntfy"`
	Identity   IdentityConfig   `koanf:"identity"`
}

// MonitorConfig controls the thread lifecycle loop. Durations are in
// seconds, matching the persisted timestamp granularity.
type MonitorConfig struct {
	CheckIntervalSecs   int    `koanf:"check_interval"`
	StallThresholdSecs  int    `koanf:"stall_threshold"`
	DeathThresholdSecs  int    `koanf:"death_threshold"`
	MaxConsecutivePosts int    `koanf:"max_consecutive_posts"`
	MaxStallCount       int    `koanf:"max_stall_count"`
	TargetMinExchanges  int    `koanf:"target_min_exchanges"`
	TargetMinArchetypes int    `koanf:"target_min_archetypes"`
	EnableProbes        bool   `koanf:"enable_probes"`
	EnableDiscovery     bool   `koanf:"enable_discovery"`
	StateDir            string `koanf:"state_dir"`
}

func (m MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalSecs) * time.Second
}

func (m MonitorConfig) StallThreshold() time.Duration {
	return time.Duration(m.StallThresholdSecs) * time.Second
}

func (m MonitorConfig) DeathThreshold() time.Duration {
	return time.Duration(m.DeathThresholdSecs) * time.Second
}

// BackendConfig describes one OpenAI-compatible chat-completion backend.
type BackendConfig struct {
	APIBase   string `koanf:"api_base"`
	APIKey    string `koanf:"api_key"`
	Default   string `koanf:"default"`
	Premium   string `koanf:"premium"`
	Utility   string `koanf:"utility"`
	Reasoning string `koanf:"reasoning"`
	Fast      string `koanf:"fast"`
}

// Configured reports whether the backend has credentials to call.
func (b BackendConfig) Configured() bool {
	return b.APIKey != ""
}

// GenerationConfig controls the content generator.
type GenerationConfig struct {
	Venice             BackendConfig `koanf:"venice"`
	Kimi               BackendConfig `koanf:"kimi"`
	DefaultProvider    string        `koanf:"default_provider"`
	TimeoutSecs        int           `koanf:"timeout_seconds"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
}

func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// OverrideRule is one textual routing condition from configuration. It is
// compiled into a typed condition at router construction; a malformed
// expression fails startup rather than misrouting requests.
type OverrideRule struct {
	Condition string `koanf:"condition"`
	Model     string `koanf:"model"`
	Reason    string `koanf:"reason"`
}

// ToolRouting is the per-tool routing entry.
type ToolRouting struct {
	Default   string         `koanf:"default"`
	Overrides []OverrideRule `koanf:"overrides"`
}

// PersonaRouting is the per-persona model preference.
type PersonaRouting struct {
	PreferredModel string `koanf:"preferred_model"`
	ReasoningModel string `koanf:"reasoning_model"`
}

// RouterConfig is the static routing rule tree for the model router.
type RouterConfig struct {
	DefaultModel  string   `koanf:"default_model"`
	FallbackChain []string `koanf:"fallback_chain"`
	Thresholds    struct {
		LongContext     int `koanf:"long_context"`
		VeryLongContext int `koanf:"very_long_context"`
	} `koanf:"thresholds"`
	Tools        map[string]ToolRouting    `koanf:"tools"`
	Personas     map[string]PersonaRouting `koanf:"personas"`
	CacheTTLSecs map[string]int            `koanf:"cache_ttl"`
}

// NtfyConfig controls the push-notification forwarder.
type NtfyConfig struct {
	Enabled         bool   `koanf:"enabled"`
	URL             string `koanf:"url"`
	Topic           string `koanf:"topic"`
	Token           string `koanf:"token"`
	PriorityErrors  string `koanf:"priority_errors"`
	PriorityActions string `koanf:"priority_actions"`
	FallbackLog     string `koanf:"fallback_log"`
}

// IdentityConfig controls Moltbook identity verification.
type IdentityConfig struct {
	APIBase      string `koanf:"api_base"`
	AppKey       string `koanf:"app_key"`
	Audience     string `koanf:"audience"`
	CacheTTLSecs int    `koanf:"cache_ttl_seconds"`
}

func (i IdentityConfig) CacheTTL() time.Duration {
	return time.Duration(i.CacheTTLSecs) * time.Second
}

// defaults mirror the deployment defaults of the original services.
var defaults = map[string]interface{}{
	"server.port": 3004,

	"monitor.check_interval":        900,
	"monitor.stall_threshold":       86400,
	"monitor.death_threshold":       172800,
	"monitor.max_consecutive_posts": 2,
	"monitor.max_stall_count":       3,
	"monitor.target_min_exchanges":  7,
	"monitor.target_min_archetypes": 3,
	"monitor.enable_probes":         true,
	"monitor.enable_discovery":      true,
	"monitor.state_dir":             "./moltbot-data/thread-continuation",

	"generation.venice.api_base":       "https://api.venice.ai/api/v1",
	"generation.venice.default":        "venice/llama-3.3-70b",
	"generation.venice.premium":        "venice/llama-3.1-405b",
	"generation.venice.utility":        "venice/qwen-2.5-7b",
	"generation.kimi.api_base":         "https://api.moonshot.ai/v1",
	"generation.kimi.reasoning":        "kimi-k2-thinking",
	"generation.kimi.fast":             "kimi-k2-0711-preview",
	"generation.default_provider":      "auto",
	"generation.timeout_seconds":       30,
	"generation.rate_limit_per_minute": 10,

	"router.default_model":                "venice/llama-3.3-70b",
	"router.thresholds.long_context":      4000,
	"router.thresholds.very_long_context": 12000,

	"ntfy.enabled":          false,
	"ntfy.url":              "https://ntfy.hashgrid.net",
	"ntfy.topic":            "moltbot-philosopher",
	"ntfy.priority_errors":  "urgent",
	"ntfy.priority_actions": "default",
	"ntfy.fallback_log":     "./moltbot-data/logs/ntfy-fallback.jsonl",

	"identity.api_base":          "https://moltbook.com/api/v1",
	"identity.audience":          "moltbot.local",
	"identity.cache_ttl_seconds": 300,
}

// Load reads the configuration: built-in defaults, then an optional TOML
// file, then MOLTBOT_ environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(defaults, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range []string{"./moltbot.toml", "$HOME/.moltbot.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("MOLTBOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MOLTBOT_")), "_", ".", -1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for inconsistent thresholds.
func Validate(cfg *Config) error {
	if cfg.Monitor.CheckIntervalSecs <= 0 {
		return fmt.Errorf("monitor check_interval must be positive")
	}
	if cfg.Monitor.StallThresholdSecs >= cfg.Monitor.DeathThresholdSecs {
		return fmt.Errorf("monitor stall_threshold must be below death_threshold")
	}
	if cfg.Monitor.TargetMinExchanges <= 0 || cfg.Monitor.TargetMinArchetypes <= 0 {
		return fmt.Errorf("monitor success targets must be positive")
	}
	if cfg.Router.DefaultModel == "" {
		return fmt.Errorf("router default_model is required")
	}
	for tool, routing := range cfg.Router.Tools {
		if routing.Default == "" {
			return fmt.Errorf("router tool %s has no default model", tool)
		}
	}
	if cfg.Ntfy.Enabled && cfg.Ntfy.Token == "" {
		return fmt.Errorf("ntfy token is required when ntfy is enabled")
	}
	return nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sample := `# Moltbot Philosopher Configuration

[server]
port = 3004

[monitor]
check_interval = 900
stall_threshold = 86400
death_threshold = 172800
target_min_exchanges = 7
target_min_archetypes = 3
state_dir = "./moltbot-data/thread-continuation"

[generation.venice]
api_base = "https://api.venice.ai/api/v1"
api_key = "your-venice-api-key"
default = "venice/llama-3.3-70b"

[generation.kimi]
api_base = "https://api.moonshot.ai/v1"
api_key = "your-kimi-api-key"
reasoning = "kimi-k2-thinking"

[router]
default_model = "venice/llama-3.3-70b"
fallback_chain = ["venice/llama-3.3-70b", "kimi-k2-0711-preview"]

[router.tools.inner_dialogue]
default = "kimi-k2-thinking"

[[router.tools.inner_dialogue.overrides]]
condition = "thread_length > 8000"
model = "kimi-k2-thinking"
reason = "deep_context"

[ntfy]
enabled = false
topic = "moltbot-philosopher"

[identity]
app_key = "your-moltbook-app-key"
audience = "moltbot.local"
`

	return os.WriteFile(configPath, []byte(sample), 0644)
}
