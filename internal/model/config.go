package model

import "time"

// ConfidenceThresholds maps statistical significance to a confidence label.
// Deterministic given the same metrics.
type ConfidenceThresholds struct {
	PValueHigh     float64 `json:"pValueHigh"`     // p below this (with enough effect) -> High
	PValueModerate float64 `json:"pValueModerate"` // p below this -> Moderate
	MinEffect      float64 `json:"minEffect"`      // |treatment_effect| needed for High
}

// RepairConfig bounds the self-healing loop.
type RepairConfig struct {
	MaxAttempts      int           `json:"maxAttempts"`      // regeneration budget
	TransientRetries int           `json:"transientRetries"` // same-code retry sub-budget
	InitialBackoff   time.Duration `json:"initialBackoff"`
	MaxBackoff       time.Duration `json:"maxBackoff"`
}

// GateConfig controls the human approval checkpoint.
type GateConfig struct {
	Enabled      bool          `json:"enabled"`
	Timeout      time.Duration `json:"timeout"`      // no decision within this bound -> rejected (fail-closed)
	PollInterval time.Duration `json:"pollInterval"`
}

// DeliveryConfig holds per-persona recipients and the webhook endpoint.
type DeliveryConfig struct {
	EmailFrom       string             `json:"emailFrom"`
	Recipients      map[Persona]string `json:"recipients"`
	WebhookURL      string             `json:"webhookUrl"`
	SMTPAddr        string             `json:"smtpAddr"` // host:port
	SMTPUsername    string             `json:"-"`
	SMTPPassword    string             `json:"-"`
}

// Config is the full orchestrator configuration, assembled from the
// environment in the cmd mains.
type Config struct {
	Repair     RepairConfig         `json:"repair"`
	Gate       GateConfig           `json:"gate"`
	Thresholds ConfidenceThresholds `json:"thresholds"`
	Delivery   DeliveryConfig       `json:"delivery"`

	// Packages is the runtime dependency set declared when deploying a
	// procedure. Generated imports outside this set are code defects.
	Packages []string `json:"packages"`

	RunTimeout time.Duration `json:"runTimeout"`
	OutputDir  string        `json:"outputDir"`
	SchemaPath string        `json:"schemaPath"` // semantic model YAML, used when the warehouse cannot serve the schema
}

// DefaultConfig returns the config used when the environment sets nothing.
func DefaultConfig() Config {
	return Config{
		Repair: RepairConfig{
			MaxAttempts:      3,
			TransientRetries: 2,
			InitialBackoff:   time.Second,
			MaxBackoff:       30 * time.Second,
		},
		Gate: GateConfig{
			Enabled:      true,
			Timeout:      30 * time.Minute,
			PollInterval: time.Second,
		},
		Thresholds: ConfidenceThresholds{
			PValueHigh:     0.01,
			PValueModerate: 0.05,
			MinEffect:      0.001,
		},
		Packages: []string{
			"snowflake-snowpark-python",
			"pandas",
			"numpy",
			"scipy",
			"scikit-learn",
			"statsmodels",
		},
		RunTimeout: 15 * time.Minute,
		OutputDir:  "outputs",
	}
}
