package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Geo           GeoConfig               `mapstructure:"geo"`
	Decision      DecisionConfig          `mapstructure:"decision"`
	Voice         VoiceConfig             `mapstructure:"voice"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Audit         AuditConfig             `mapstructure:"audit"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
}

func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GeoConfig selects where the geo dataset is loaded from.
type GeoConfig struct {
	Source            string  `mapstructure:"source"` // "csv" or "postgres"
	CSVPath           string  `mapstructure:"csv_path"`
	Table             string  `mapstructure:"table"`
	ScanLimit         int     `mapstructure:"scan_limit"`
	EarlyExitDistance float64 `mapstructure:"early_exit_distance"`
}

type DecisionConfig struct {
	DrynessFloorMM float64            `mapstructure:"dryness_floor_mm"`
	NoiseAmplitude float64            `mapstructure:"noise_amplitude"`
	NoiseSeed      int64              `mapstructure:"noise_seed"`
	Thresholds     map[string]float64 `mapstructure:"thresholds"`
}

type VoiceConfig struct {
	Listen          bool                `mapstructure:"listen"` // run the wake-word listener
	DefaultLanguage string              `mapstructure:"default_language"`
	WakeSensitivity int                 `mapstructure:"wake_sensitivity"`
	WakeWords       map[string][]string `mapstructure:"wake_words"`
	WhisperURL      string              `mapstructure:"whisper_url"`
	WhisperTimeout  int                 `mapstructure:"whisper_timeout"` // milliseconds
	PollInterval    int                 `mapstructure:"poll_interval"`   // milliseconds
	SpeechRate      float64             `mapstructure:"speech_rate"`
	SpeechPitch     float64             `mapstructure:"speech_pitch"`
}

type PipelineConfig struct {
	StageTimeout int  `mapstructure:"stage_timeout"` // milliseconds
	ResultTTL    int  `mapstructure:"result_ttl"`    // milliseconds
	StoreResults bool `mapstructure:"store_results"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type NotificationConfig struct {
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
