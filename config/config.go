package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	RecordRuns       bool

	SerpAPIKey string
	NumResults int

	GroqAPIKey     string
	GroqBaseURL    string
	FastModel      string
	StrongModel    string
	ExplainTimeout time.Duration
	MaxRetries     int
	MaxConcurrency int
	RateLimitMs    int

	RiskProfile     string
	HighThreshold   float64
	MediumThreshold float64
	PriceBaseline   string

	MaxHighExplained   int
	MaxMediumExplained int
	EscalationPolicy   string
	UncertainLow       float64
	UncertainHigh      float64

	CacheBackend  string
	CacheSize     int
	CacheTTL      time.Duration
	CacheSweep    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LexiconPath string

	HTTPPort        int
	ShutdownTimeout time.Duration
	CSVOutputPath   string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	profile := ProfileByName(getEnv("RISK_PROFILE", DefaultProfile))

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "trustcart"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "trustcart"),
		PostgresDB:       getEnv("POSTGRES_DB", "trustcart"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		RecordRuns:       getEnvBool("RECORD_RUNS", false),

		SerpAPIKey: getEnv("SERPAPI_KEY", ""),
		NumResults: getEnvInt("NUM_RESULTS", 10),

		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:    getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		FastModel:      getEnv("GROQ_FAST_MODEL", "llama-3.1-8b-instant"),
		StrongModel:    getEnv("GROQ_STRONG_MODEL", "llama-3.1-70b-versatile"),
		ExplainTimeout: getEnvSeconds("EXPLAIN_TIMEOUT", 20),
		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 0),

		RiskProfile:     profile.Name,
		HighThreshold:   getEnvFloat("RISK_HIGH_THRESHOLD", profile.High),
		MediumThreshold: getEnvFloat("RISK_MEDIUM_THRESHOLD", profile.Medium),
		PriceBaseline:   strings.ToLower(getEnv("PRICE_BASELINE", "percentile")),

		MaxHighExplained:   getEnvInt("MAX_HIGH_EXPLAINED", 3),
		MaxMediumExplained: getEnvInt("MAX_MEDIUM_EXPLAINED", 2),
		EscalationPolicy:   strings.ToLower(getEnv("ESCALATION_POLICY", "uncertain_high")),
		UncertainLow:       getEnvFloat("UNCERTAIN_LOW", 0.4),
		UncertainHigh:      getEnvFloat("UNCERTAIN_HIGH", 0.6),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheSize:     getEnvInt("CACHE_SIZE", 1000),
		CacheTTL:      getEnvSeconds("CACHE_TTL", 3600),
		CacheSweep:    getEnv("CACHE_SWEEP", "@every 10m"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LexiconPath: getEnv("LEXICON_PATH", ""),

		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		ShutdownTimeout: getEnvSeconds("SHUTDOWN_TIMEOUT", 15),
		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
