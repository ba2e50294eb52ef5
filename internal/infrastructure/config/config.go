package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App       AppSettings
	HTTP      HTTPSettings
	Auth      AuthSettings
	Log       LogSettings
	Database  DatabaseSettings
	Audit     AuditSettings
	Exhortos  ExhortosSettings
	Storage   StorageSettings
	Queue     QueueSettings
	Scheduler SchedulerSettings
	Metrics   MetricsSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// ExhortosSettings controla el envío y la consulta de exhortos.
type ExhortosSettings struct {
	MaximoIntentos     int
	EsperaReintento    time.Duration
	BackoffExponencial bool
	PausaLlamadas      time.Duration
	TimeoutLlamadas    time.Duration
	LeaseTTL           time.Duration
	CacheExternosTTL   time.Duration
}

type StorageSettings struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type QueueSettings struct {
	Enabled    bool
	URL        string
	Subject    string
	QueueGroup string
	Workers    int

	// ConnectRetries bounds the first connection attempt; reconnects after
	// that are unlimited.
	ConnectRetries int
}

// SchedulerSettings lleva las expresiones cron; vacío desactiva la tarea.
type SchedulerSettings struct {
	Enabled       bool
	EnviarSpec    string
	ConsultarSpec string
	ProbarSpec    string
}

type MetricsSettings struct {
	Enabled bool
	Path    string
}

// Load resolves the application configuration from environment variables.
// A .env file is read first when present; real environment variables win.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "carina"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", true),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health", "/metrics"}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "pjecz_carina"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectRetries:  getEnvAsInt("DB_CONNECT_RETRIES", 5),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		Exhortos: ExhortosSettings{
			MaximoIntentos:     getEnvAsInt("EXHORTOS_MAXIMO_INTENTOS", 3),
			EsperaReintento:    getEnvAsDuration("EXHORTOS_ESPERA_REINTENTO", 120*time.Second),
			BackoffExponencial: getEnvAsBool("EXHORTOS_BACKOFF_EXPONENCIAL", false),
			PausaLlamadas:      getEnvAsDuration("EXHORTOS_PAUSA_LLAMADAS", 2*time.Second),
			TimeoutLlamadas:    getEnvAsDuration("EXHORTOS_TIMEOUT_LLAMADAS", 30*time.Second),
			LeaseTTL:           getEnvAsDuration("EXHORTOS_LEASE_TTL", 10*time.Minute),
			CacheExternosTTL:   getEnvAsDuration("EXHORTOS_CACHE_EXTERNOS_TTL", 5*time.Minute),
		},
		Storage: StorageSettings{
			BaseURL: strings.TrimSpace(os.Getenv("STORAGE_BASE_URL")),
			Token:   strings.TrimSpace(os.Getenv("STORAGE_TOKEN")),
			Timeout: getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
		},
		Queue: QueueSettings{
			Enabled:        getEnvAsBool("QUEUE_ENABLED", true),
			URL:            getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Subject:        getEnv("QUEUE_SUBJECT", "carina.tareas"),
			QueueGroup:     getEnv("QUEUE_GROUP", "carina-workers"),
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			ConnectRetries: getEnvAsInt("QUEUE_CONNECT_RETRIES", 5),
		},
		Scheduler: SchedulerSettings{
			Enabled:       getEnvAsBool("SCHEDULER_ENABLED", true),
			EnviarSpec:    getEnv("SCHEDULER_ENVIAR", "@every 2m"),
			ConsultarSpec: getEnv("SCHEDULER_CONSULTAR", "@every 1h"),
			ProbarSpec:    getEnv("SCHEDULER_PROBAR_ENDPOINTS", "0 7 * * *"),
		},
		Metrics: MetricsSettings{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg AppConfig) validate() error {
	if cfg.Exhortos.MaximoIntentos < 0 {
		return errors.New("invalid config: EXHORTOS_MAXIMO_INTENTOS cannot be negative")
	}
	if cfg.Exhortos.EsperaReintento < 0 {
		return errors.New("invalid config: EXHORTOS_ESPERA_REINTENTO cannot be negative")
	}
	if cfg.Exhortos.TimeoutLlamadas <= 0 {
		return errors.New("invalid config: EXHORTOS_TIMEOUT_LLAMADAS must be greater than 0")
	}
	if cfg.Exhortos.LeaseTTL <= cfg.Exhortos.TimeoutLlamadas {
		return errors.New("invalid config: EXHORTOS_LEASE_TTL must be longer than EXHORTOS_TIMEOUT_LLAMADAS")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}

	if cfg.Queue.Enabled && strings.TrimSpace(cfg.Queue.Subject) == "" {
		return errors.New("invalid config: QUEUE_SUBJECT is required when QUEUE_ENABLED=true")
	}

	if cfg.Scheduler.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		specs := map[string]string{
			"SCHEDULER_ENVIAR":           cfg.Scheduler.EnviarSpec,
			"SCHEDULER_CONSULTAR":        cfg.Scheduler.ConsultarSpec,
			"SCHEDULER_PROBAR_ENDPOINTS": cfg.Scheduler.ProbarSpec,
		}
		for key, spec := range specs {
			if strings.TrimSpace(spec) == "" {
				continue
			}
			if _, err := parser.Parse(spec); err != nil {
				return fmt.Errorf("invalid config: %s: %w", key, err)
			}
		}
	}

	return nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
