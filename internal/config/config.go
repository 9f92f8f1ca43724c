// Package config assembles the orchestrator configuration from environment
// variables, starting from the built-in defaults.
package config

import (
	"os"
	"strconv"
	"strings"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/pkg/utils"
)

// FromEnv builds a Config from the environment. Unset variables keep the
// defaults from model.DefaultConfig.
func FromEnv() model.Config {
	cfg := model.DefaultConfig()

	cfg.Repair.MaxAttempts = envInt("REPAIR_MAX_ATTEMPTS", cfg.Repair.MaxAttempts)
	cfg.Repair.TransientRetries = envInt("REPAIR_TRANSIENT_RETRIES", cfg.Repair.TransientRetries)
	cfg.Repair.InitialBackoff = utils.ParseDuration(os.Getenv("REPAIR_INITIAL_BACKOFF"), cfg.Repair.InitialBackoff)
	cfg.Repair.MaxBackoff = utils.ParseDuration(os.Getenv("REPAIR_MAX_BACKOFF"), cfg.Repair.MaxBackoff)

	cfg.Gate.Enabled = envBool("GATE_ENABLED", cfg.Gate.Enabled)
	cfg.Gate.Timeout = utils.ParseDuration(os.Getenv("GATE_TIMEOUT"), cfg.Gate.Timeout)
	cfg.Gate.PollInterval = utils.ParseDuration(os.Getenv("GATE_POLL_INTERVAL"), cfg.Gate.PollInterval)

	cfg.Thresholds.PValueHigh = envFloat("THRESHOLD_P_VALUE_HIGH", cfg.Thresholds.PValueHigh)
	cfg.Thresholds.PValueModerate = envFloat("THRESHOLD_P_VALUE_MODERATE", cfg.Thresholds.PValueModerate)
	cfg.Thresholds.MinEffect = envFloat("THRESHOLD_MIN_EFFECT", cfg.Thresholds.MinEffect)

	cfg.Delivery.EmailFrom = envString("EMAIL_FROM", cfg.Delivery.EmailFrom)
	cfg.Delivery.WebhookURL = envString("WEBHOOK_URL", cfg.Delivery.WebhookURL)
	cfg.Delivery.SMTPAddr = envString("SMTP_ADDR", cfg.Delivery.SMTPAddr)
	cfg.Delivery.SMTPUsername = envString("SMTP_USERNAME", cfg.Delivery.SMTPUsername)
	cfg.Delivery.SMTPPassword = envString("SMTP_PASSWORD", cfg.Delivery.SMTPPassword)
	cfg.Delivery.Recipients = map[model.Persona]string{
		model.PersonaCMO:          os.Getenv("EMAIL_RECIPIENT_CMO"),
		model.PersonaMarketingOps: os.Getenv("EMAIL_RECIPIENT_MARKETING_OPS"),
		model.PersonaDataTeam:     os.Getenv("EMAIL_RECIPIENT_DATA_TEAM"),
	}

	if pkgs := os.Getenv("ANALYSIS_PACKAGES"); pkgs != "" {
		cfg.Packages = nil
		for _, p := range strings.Split(pkgs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Packages = append(cfg.Packages, p)
			}
		}
	}

	cfg.RunTimeout = utils.ParseDuration(os.Getenv("RUN_TIMEOUT"), cfg.RunTimeout)
	cfg.OutputDir = envString("OUTPUT_DIR", cfg.OutputDir)
	cfg.SchemaPath = envString("SEMANTIC_MODEL_PATH", "semantic_model.yaml")

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
