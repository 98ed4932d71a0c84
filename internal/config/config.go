package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
)

// Config stores runtime configuration for the pipeline process.
type Config struct {
	AppEnv                         string
	ServiceName                    string
	ServiceVersion                 string
	HTTPAddr                       string
	DBURL                          string
	DBMaxOpenConns                 int
	DBBinaryParameters             bool
	DBEnsureSchema                 bool
	CacheTTL                       time.Duration
	CORSAllowedOrigins             []string
	ReadTimeout                    time.Duration
	WriteTimeout                   time.Duration
	PprofEnabled                   bool
	PprofAddr                      string
	MetricsEnabled                 bool
	UptraceEnabled                 bool
	UptraceDSN                     string
	UptraceLogsEnabled             bool
	PyroscopeEnabled               bool
	PyroscopeServerAddress         string
	PyroscopeAppName               string
	PyroscopeAuthToken             string
	PyroscopeBasicAuthUser         string
	PyroscopeBasicAuthPassword     string
	PyroscopeUploadRate            time.Duration
	Scores365BaseURL               string
	Scores365CompetitionID         int64
	Scores365SeasonNum             int
	Scores365Timeout               time.Duration
	Scores365MaxRetries            int
	Scores365RateLimit             float64
	Scores365UserAgent             string
	Scores365CircuitEnabled        bool
	Scores365CircuitFailureCount   int
	Scores365CircuitOpenTimeout    time.Duration
	Scores365CircuitHalfOpenTrials int
	PipelineMaxMatches             int
	PipelineMaxDuration            time.Duration
	PipelineStaleAfter             time.Duration
	PipelineSchedule               string
	InternalJobToken               string
	LogLevel                       logging.Level
}

func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if dbMaxOpenConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be > 0")
	}
	dbBinaryParameters, err := strconv.ParseBool(getEnv("DB_BINARY_PARAMETERS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_BINARY_PARAMETERS: %w", err)
	}
	dbEnsureSchema, err := strconv.ParseBool(getEnv("DB_ENSURE_SCHEMA", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_ENSURE_SCHEMA: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	scoresCompetitionID, err := strconv.ParseInt(getEnv("SCORES365_COMPETITION_ID", "649"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_COMPETITION_ID: %w", err)
	}
	if scoresCompetitionID <= 0 {
		return Config{}, fmt.Errorf("SCORES365_COMPETITION_ID must be > 0")
	}
	scoresSeasonNum, err := getEnvAsInt("SCORES365_SEASON_NUM", 53)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_SEASON_NUM: %w", err)
	}
	if scoresSeasonNum <= 0 {
		return Config{}, fmt.Errorf("SCORES365_SEASON_NUM must be > 0")
	}
	scoresTimeout, err := time.ParseDuration(getEnv("SCORES365_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_TIMEOUT: %w", err)
	}
	if scoresTimeout <= 0 {
		return Config{}, fmt.Errorf("SCORES365_TIMEOUT must be > 0")
	}
	scoresMaxRetries, err := getEnvAsInt("SCORES365_MAX_RETRIES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_MAX_RETRIES: %w", err)
	}
	if scoresMaxRetries < 0 {
		return Config{}, fmt.Errorf("SCORES365_MAX_RETRIES must be >= 0")
	}
	scoresRateLimit, err := strconv.ParseFloat(getEnv("SCORES365_RATE_LIMIT", "2"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_RATE_LIMIT: %w", err)
	}
	if scoresRateLimit < 0 {
		return Config{}, fmt.Errorf("SCORES365_RATE_LIMIT must be >= 0")
	}
	scoresCircuitEnabled, err := strconv.ParseBool(getEnv("SCORES365_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_CIRCUIT_ENABLED: %w", err)
	}
	scoresCircuitFailureCount, err := getEnvAsInt("SCORES365_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if scoresCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SCORES365_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	scoresCircuitOpenTimeout, err := time.ParseDuration(getEnv("SCORES365_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if scoresCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SCORES365_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	scoresCircuitHalfOpenTrials, err := getEnvAsInt("SCORES365_CIRCUIT_HALF_OPEN_TRIALS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES365_CIRCUIT_HALF_OPEN_TRIALS: %w", err)
	}
	if scoresCircuitHalfOpenTrials < 1 {
		return Config{}, fmt.Errorf("SCORES365_CIRCUIT_HALF_OPEN_TRIALS must be >= 1")
	}

	pipelineMaxMatches, err := getEnvAsInt("PIPELINE_MAX_MATCHES", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_MAX_MATCHES: %w", err)
	}
	if pipelineMaxMatches <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_MAX_MATCHES must be > 0")
	}
	pipelineMaxDuration, err := time.ParseDuration(getEnv("PIPELINE_MAX_DURATION", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_MAX_DURATION: %w", err)
	}
	if pipelineMaxDuration <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_MAX_DURATION must be > 0")
	}
	pipelineStaleAfter, err := time.ParseDuration(getEnv("PIPELINE_STALE_AFTER", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PIPELINE_STALE_AFTER: %w", err)
	}
	if pipelineStaleAfter <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_STALE_AFTER must be > 0")
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                         appEnv,
		ServiceName:                    getEnv("APP_SERVICE_NAME", "fixture-pipeline"),
		ServiceVersion:                 getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                       getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:                          dbURL,
		DBMaxOpenConns:                 dbMaxOpenConns,
		DBBinaryParameters:             dbBinaryParameters,
		DBEnsureSchema:                 dbEnsureSchema,
		CacheTTL:                       cacheTTL,
		CORSAllowedOrigins:             splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:                    readTimeout,
		WriteTimeout:                   writeTimeout,
		PprofEnabled:                   pprofEnabled,
		PprofAddr:                      pprofAddr,
		MetricsEnabled:                 metricsEnabled,
		UptraceEnabled:                 uptraceEnabled,
		UptraceDSN:                     uptraceDSN,
		UptraceLogsEnabled:             uptraceLogsEnabled,
		PyroscopeEnabled:               pyroscopeEnabled,
		PyroscopeServerAddress:         pyroscopeServerAddress,
		PyroscopeAuthToken:             strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:         strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:            pyroscopeUploadRate,
		Scores365BaseURL:               strings.TrimSpace(getEnv("SCORES365_BASE_URL", "https://webws.365scores.com")),
		Scores365CompetitionID:         scoresCompetitionID,
		Scores365SeasonNum:             scoresSeasonNum,
		Scores365Timeout:               scoresTimeout,
		Scores365MaxRetries:            scoresMaxRetries,
		Scores365RateLimit:             scoresRateLimit,
		Scores365UserAgent:             strings.TrimSpace(getEnv("SCORES365_USER_AGENT", "")),
		Scores365CircuitEnabled:        scoresCircuitEnabled,
		Scores365CircuitFailureCount:   scoresCircuitFailureCount,
		Scores365CircuitOpenTimeout:    scoresCircuitOpenTimeout,
		Scores365CircuitHalfOpenTrials: scoresCircuitHalfOpenTrials,
		PipelineMaxMatches:             pipelineMaxMatches,
		PipelineMaxDuration:            pipelineMaxDuration,
		PipelineStaleAfter:             pipelineStaleAfter,
		PipelineSchedule:               strings.TrimSpace(getEnv("PIPELINE_SCHEDULE", "")),
		InternalJobToken:               strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		LogLevel:                       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
