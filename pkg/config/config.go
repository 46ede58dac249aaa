// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the switchboard configuration: defaults, an optional
// YAML file, and SWITCHBOARD_* environment variables, highest priority last.
// Configuration is read once at startup and passed by value; nothing
// re-reads it mid-request.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AleutianAI/Switchboard/pkg/logging"
	"github.com/AleutianAI/Switchboard/services/guardrails"
	"github.com/AleutianAI/Switchboard/services/handoff"
	"github.com/AleutianAI/Switchboard/services/llm"
	"github.com/AleutianAI/Switchboard/services/retrieval"
	"github.com/AleutianAI/Switchboard/services/slack"
	"github.com/AleutianAI/Switchboard/services/support"
)

// Config is the full switchboard configuration tree.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Handoff    HandoffConfig    `mapstructure:"handoff"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Support    SupportConfig    `mapstructure:"support"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// LoggingConfig holds the process logging options.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// ServerConfig holds the HTTP gateway options.
type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerSec float64  `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int      `mapstructure:"rate_limit_burst"`
	OTLPEndpoint    string   `mapstructure:"otlp_endpoint"`

	// DiagnosticsEnabled exposes the guardrail, retrieval, and index
	// admin endpoints. Disable on internet-facing deployments.
	DiagnosticsEnabled bool `mapstructure:"diagnostics_enabled"`
}

// GuardrailsConfig mirrors guardrails.Config in mapstructure form.
type GuardrailsConfig struct {
	Enabled                   bool     `mapstructure:"enabled"`
	Mode                      string   `mapstructure:"mode"`
	MaxInputChars             int      `mapstructure:"max_input_chars"`
	MaxOutputChars            int      `mapstructure:"max_output_chars"`
	RemoveAccents             bool     `mapstructure:"remove_accents"`
	StripSymbols              string   `mapstructure:"strip_symbols"`
	AntiInjectionEnabled      bool     `mapstructure:"anti_injection_enabled"`
	InjectionPatternOverrides string   `mapstructure:"injection_pattern_overrides"`
	ModerationEnabled         bool     `mapstructure:"moderation_enabled"`
	BlocklistOverrides        string   `mapstructure:"blocklist_overrides"`
	PIIMaskingEnabled         bool     `mapstructure:"pii_masking_enabled"`
	MaskEmail                 bool     `mapstructure:"mask_email"`
	MaskPhone                 bool     `mapstructure:"mask_phone"`
	TicketPrefixes            []string `mapstructure:"ticket_prefixes"`
	RedirectAlways            bool     `mapstructure:"redirect_always"`
}

// RetrievalConfig holds the retrieval-engine knobs.
type RetrievalConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	IndexDir         string   `mapstructure:"index_dir"`
	TopK             int      `mapstructure:"top_k"`
	MinScore         float64  `mapstructure:"min_score"`
	TitleBoost       float64  `mapstructure:"title_boost"`
	ExactTermBoost   float64  `mapstructure:"exact_term_boost"`
	LengthPenalty    float64  `mapstructure:"length_penalty"`
	MaxContextChars  int      `mapstructure:"max_context_chars"`
	CacheTTLSeconds  int      `mapstructure:"cache_ttl_seconds"`
	OfficialPrefixes []string `mapstructure:"official_prefixes"`
	DefaultSite      string   `mapstructure:"default_site"`
	DefaultTitle     string   `mapstructure:"default_title"`
	FallbackURLs     []string `mapstructure:"fallback_urls"`
}

// HandoffConfig holds the pending-handoff store and redirect options.
type HandoffConfig struct {
	TTLSeconds          int     `mapstructure:"ttl_seconds"`
	RedirectEnabled     bool    `mapstructure:"redirect_enabled"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	Channel             string  `mapstructure:"channel"`
}

// LLMConfig selects and parameterizes the LLM provider.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// SlackConfig holds the delivery-client and slack-agent options.
type SlackConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	AgentEnabled   bool    `mapstructure:"agent_enabled"`
	Mode           string  `mapstructure:"mode"`
	WebhookURL     string  `mapstructure:"webhook_url"`
	BotToken       string  `mapstructure:"bot_token"`
	DefaultChannel string  `mapstructure:"default_channel"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// SupportConfig mirrors support.Config plus the database path.
type SupportConfig struct {
	DBPath                   string  `mapstructure:"db_path"`
	FAQEnabled               bool    `mapstructure:"faq_enabled"`
	FAQScoreThreshold        float64 `mapstructure:"faq_score_threshold"`
	FAQDatasetPath           string  `mapstructure:"faq_dataset_path"`
	AccountStatusDatasetPath string  `mapstructure:"account_status_dataset_path"`
	PIIMaskingEnabled        bool    `mapstructure:"pii_masking_enabled"`
	MaxDescriptionChars      int     `mapstructure:"max_description_chars"`
	EscalationAuto           bool    `mapstructure:"escalation_auto"`
	CategoryTermOverrides    string  `mapstructure:"category_term_overrides"`
	SeverityTermOverrides    string  `mapstructure:"severity_term_overrides"`
}

// Load reads configuration from defaults, the optional file at path, and
// the environment. An empty path skips the file layer.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SWITCHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_sec", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.otlp_endpoint", "")
	v.SetDefault("server.diagnostics_enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.dir", "")

	g := guardrails.DefaultConfig()
	v.SetDefault("guardrails.enabled", g.Enabled)
	v.SetDefault("guardrails.mode", g.Mode)
	v.SetDefault("guardrails.max_input_chars", g.MaxInputChars)
	v.SetDefault("guardrails.max_output_chars", g.MaxOutputChars)
	v.SetDefault("guardrails.remove_accents", g.RemoveAccents)
	v.SetDefault("guardrails.strip_symbols", g.StripSymbols)
	v.SetDefault("guardrails.anti_injection_enabled", g.AntiInjectionEnabled)
	v.SetDefault("guardrails.injection_pattern_overrides", "")
	v.SetDefault("guardrails.moderation_enabled", g.ModerationEnabled)
	v.SetDefault("guardrails.blocklist_overrides", "")
	v.SetDefault("guardrails.pii_masking_enabled", g.PIIMaskingEnabled)
	v.SetDefault("guardrails.mask_email", g.MaskEmail)
	v.SetDefault("guardrails.mask_phone", g.MaskPhone)
	v.SetDefault("guardrails.ticket_prefixes", []string{})
	v.SetDefault("guardrails.redirect_always", false)

	idx := retrieval.DefaultIndexConfig()
	rr := retrieval.DefaultRerankerConfig()
	v.SetDefault("retrieval.enabled", true)
	v.SetDefault("retrieval.index_dir", idx.Dir)
	v.SetDefault("retrieval.top_k", idx.TopK)
	v.SetDefault("retrieval.min_score", idx.MinScore)
	v.SetDefault("retrieval.title_boost", rr.TitleBoost)
	v.SetDefault("retrieval.exact_term_boost", rr.ExactTermBoost)
	v.SetDefault("retrieval.length_penalty", rr.LengthPenalty)
	v.SetDefault("retrieval.max_context_chars", 8000)
	v.SetDefault("retrieval.cache_ttl_seconds", 300)
	v.SetDefault("retrieval.official_prefixes", []string{"https://www.infinitepay.io"})
	v.SetDefault("retrieval.default_site", "https://www.infinitepay.io")
	v.SetDefault("retrieval.default_title", "InfinitePay")
	v.SetDefault("retrieval.fallback_urls", []string{"https://www.infinitepay.io"})

	rd := handoff.DefaultRedirectConfig()
	v.SetDefault("handoff.ttl_seconds", 120)
	v.SetDefault("handoff.redirect_enabled", rd.Enabled)
	v.SetDefault("handoff.confidence_threshold", rd.ConfidenceThreshold)
	v.SetDefault("handoff.channel", rd.Channel)

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	sl := slack.DefaultConfig()
	v.SetDefault("slack.enabled", sl.Enabled)
	v.SetDefault("slack.agent_enabled", true)
	v.SetDefault("slack.mode", sl.Mode)
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.default_channel", "#support-escalations")
	v.SetDefault("slack.timeout_seconds", sl.Timeout.Seconds())
	v.SetDefault("slack.max_retries", sl.MaxRetries)

	sp := support.DefaultConfig()
	v.SetDefault("support.db_path", "data/support/db")
	v.SetDefault("support.faq_enabled", sp.FAQEnabled)
	v.SetDefault("support.faq_score_threshold", sp.FAQScoreThreshold)
	v.SetDefault("support.faq_dataset_path", "")
	v.SetDefault("support.account_status_dataset_path", "")
	v.SetDefault("support.pii_masking_enabled", sp.PIIMaskingEnabled)
	v.SetDefault("support.max_description_chars", sp.MaxDescriptionChars)
	v.SetDefault("support.escalation_auto", sp.EscalationAuto)
	v.SetDefault("support.category_term_overrides", "")
	v.SetDefault("support.severity_term_overrides", "")
}

// GuardrailsConfig converts to the guardrails package's config type.
func (c Config) GuardrailsConfig() guardrails.Config {
	return guardrails.Config{
		Enabled:                   c.Guardrails.Enabled,
		Mode:                      c.Guardrails.Mode,
		MaxInputChars:             c.Guardrails.MaxInputChars,
		MaxOutputChars:            c.Guardrails.MaxOutputChars,
		RemoveAccents:             c.Guardrails.RemoveAccents,
		StripSymbols:              c.Guardrails.StripSymbols,
		AntiInjectionEnabled:      c.Guardrails.AntiInjectionEnabled,
		InjectionPatternOverrides: c.Guardrails.InjectionPatternOverrides,
		ModerationEnabled:         c.Guardrails.ModerationEnabled,
		BlocklistOverrides:        c.Guardrails.BlocklistOverrides,
		PIIMaskingEnabled:         c.Guardrails.PIIMaskingEnabled,
		MaskEmail:                 c.Guardrails.MaskEmail,
		MaskPhone:                 c.Guardrails.MaskPhone,
		TicketPrefixes:            c.Guardrails.TicketPrefixes,
	}
}

// IndexConfig converts to the retrieval index config.
func (c Config) IndexConfig() retrieval.IndexConfig {
	return retrieval.IndexConfig{
		Dir:        c.Retrieval.IndexDir,
		TopK:       c.Retrieval.TopK,
		MinScore:   c.Retrieval.MinScore,
		TitleBoost: c.Retrieval.TitleBoost,
	}
}

// RerankerConfig converts to the retrieval reranker config.
func (c Config) RerankerConfig() retrieval.RerankerConfig {
	return retrieval.RerankerConfig{
		TitleBoost:     c.Retrieval.TitleBoost,
		ExactTermBoost: c.Retrieval.ExactTermBoost,
		LengthPenalty:  c.Retrieval.LengthPenalty,
	}
}

// CitationConfig converts to the retrieval citation config.
func (c Config) CitationConfig() retrieval.CitationConfig {
	return retrieval.CitationConfig{
		OfficialPrefixes: c.Retrieval.OfficialPrefixes,
		DefaultSite:      c.Retrieval.DefaultSite,
		DefaultTitle:     c.Retrieval.DefaultTitle,
	}
}

// RedirectConfig converts to the handoff redirect config.
func (c Config) RedirectConfig() handoff.RedirectConfig {
	return handoff.RedirectConfig{
		Enabled:             c.Handoff.RedirectEnabled,
		AlwaysRedirect:      c.Guardrails.RedirectAlways,
		ConfidenceThreshold: c.Handoff.ConfidenceThreshold,
		Channel:             c.Handoff.Channel,
	}
}

// HandoffTTL returns the pending-handoff lifetime.
func (c Config) HandoffTTL() time.Duration {
	return time.Duration(c.Handoff.TTLSeconds) * time.Second
}

// CacheTTL returns the retrieval cache lifetime.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Retrieval.CacheTTLSeconds) * time.Second
}

// LLMConfig converts to the llm provider config.
func (c Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
	}
}

// SlackClientConfig converts to the slack delivery-client config.
func (c Config) SlackClientConfig() slack.Config {
	return slack.Config{
		Enabled:    c.Slack.Enabled,
		Mode:       c.Slack.Mode,
		WebhookURL: c.Slack.WebhookURL,
		BotToken:   c.Slack.BotToken,
		Timeout:    time.Duration(c.Slack.TimeoutSeconds * float64(time.Second)),
		MaxRetries: c.Slack.MaxRetries,
	}
}

// SupportConfig converts to the support service config.
func (c Config) SupportConfig() support.Config {
	return support.Config{
		FAQEnabled:               c.Support.FAQEnabled,
		FAQScoreThreshold:        c.Support.FAQScoreThreshold,
		FAQDatasetPath:           c.Support.FAQDatasetPath,
		AccountStatusDatasetPath: c.Support.AccountStatusDatasetPath,
		PIIMaskingEnabled:        c.Support.PIIMaskingEnabled,
		MaxDescriptionChars:      c.Support.MaxDescriptionChars,
		EscalationAuto:           c.Support.EscalationAuto,
		CategoryTermOverrides:    c.Support.CategoryTermOverrides,
		SeverityTermOverrides:    c.Support.SeverityTermOverrides,
	}
}

// LoggerConfig converts the logging section for logging.Setup. The gateway
// writes to stdout; the CLI overrides Stdout and Service itself.
func (c Config) LoggerConfig(service string) logging.Config {
	return logging.Config{
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Dir:     c.Logging.Dir,
		Service: service,
		Stdout:  true,
	}
}
