// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Decision Engine Configuration ---

// EngineConfig carries every named tuning parameter of the decision core.
// Defaults are stable across runs; deployments may override any of them.
type EngineConfig struct {
	ModelArtifactPath string `mapstructure:"model_artifact_path"`
	KnowledgeBasePath string `mapstructure:"knowledge_base_path"`

	// Band thresholds over PD: APPROVE if p < ApproveBelow, REJECT if
	// p >= RejectAtOrAbove, MANUAL_REVIEW otherwise.
	ApproveBelow    float64 `mapstructure:"approve_below"`
	RejectAtOrAbove float64 `mapstructure:"reject_at_or_above"`

	// Explanation parameters.
	TopK                  int     `mapstructure:"top_k"`
	SampleCount           int     `mapstructure:"sample_count"`
	SignificanceThreshold float64 `mapstructure:"significance_threshold"`

	// Bundle assembly caps and projection math.
	MaxQuestions    int     `mapstructure:"max_questions"`
	MaxDocuments    int     `mapstructure:"max_documents"`
	MaxActions      int     `mapstructure:"max_actions"`
	DecayFactor     float64 `mapstructure:"decay_factor"`
	ProjectionFloor float64 `mapstructure:"projection_floor"`
}

// --- Logging / Notifications ---

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type NotificationConfig struct {
	AWSRegion      string `mapstructure:"aws_region"`
	SenderEmail    string `mapstructure:"sender_email"`
	ReviewQueueARN string `mapstructure:"review_queue_arn"`
	OfficerEmail   string `mapstructure:"officer_email"`
}
