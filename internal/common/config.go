package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	Output     OutputConfig
	Watch      WatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "sqlite" or "postgres"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr       string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// ExtractionConfig mirrors the engine options. Env binding happens here, once;
// the engine itself only receives an explicit options value.
type ExtractionConfig struct {
	UseOCR               bool
	OCRWordThreshold     int
	ConcurrentExtraction bool
	EnabledTextBackends  []string
	EnabledTableBackends []string
	MaxWorkers           int
	PageConcurrency      int
	BackendTimeout       time.Duration
	OCRTimeout           time.Duration
	OCRRatePerSecond     float64
	ExpectedWordsPerPage int
	MinQualityFloor      float64
	ContextRadius        int
}

// OCRConfig holds OCR tool configuration
type OCRConfig struct {
	Pdftotext   string
	Pdftoppm    string
	Pdfinfo     string
	Tesseract   string
	Lang        string
	DPI         int
	TessdataDir string
}

// OutputConfig controls what the pipeline writes besides the database record.
type OutputConfig struct {
	Dir        string
	WriteFiles bool
	WriteXLSX  bool
}

// WatchConfig holds inbox watcher configuration
type WatchConfig struct {
	Roots       []string
	InitialScan bool
	Debounce    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:report-facts.db?_pragma=foreign_keys(1)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 30*time.Minute),
		},
		Extraction: ExtractionConfig{
			UseOCR:               getEnvAsBool("USE_OCR", true),
			OCRWordThreshold:     getEnvAsInt("OCR_WORD_THRESHOLD", 100),
			ConcurrentExtraction: getEnvAsBool("CONCURRENT_EXTRACTION", true),
			EnabledTextBackends:  getEnvAsList("TEXT_BACKENDS"),
			EnabledTableBackends: getEnvAsList("TABLE_BACKENDS"),
			MaxWorkers:           getEnvAsInt("MAX_WORKERS", 4),
			PageConcurrency:      getEnvAsInt("PAGE_CONCURRENCY", 2),
			BackendTimeout:       getEnvAsDuration("BACKEND_TIMEOUT", 60*time.Second),
			OCRTimeout:           getEnvAsDuration("OCR_TIMEOUT", 3*time.Minute),
			OCRRatePerSecond:     getEnvAsFloat64("OCR_RATE_PER_SECOND", 0),
			ExpectedWordsPerPage: getEnvAsInt("EXPECTED_WORDS_PER_PAGE", 250),
			MinQualityFloor:      getEnvAsFloat64("MIN_QUALITY_FLOOR", 0.1),
			ContextRadius:        getEnvAsInt("CONTEXT_RADIUS", 120),
		},
		OCR: OCRConfig{
			Pdftotext:   getEnv("PDFTOTEXT", "pdftotext"),
			Pdftoppm:    getEnv("PDFTOPPM", "pdftoppm"),
			Pdfinfo:     getEnv("PDFINFO", "pdfinfo"),
			Tesseract:   getEnv("TESSERACT", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
		},
		Output: OutputConfig{
			Dir:        getEnv("OUTPUT_DIR", "./out"),
			WriteFiles: getEnvAsBool("WRITE_FILES", true),
			WriteXLSX:  getEnvAsBool("WRITE_XLSX", false),
		},
		Watch: WatchConfig{
			Roots:       getEnvAsList("WATCH_DIRS"),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", true),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value. Unset yields nil, which callers
// treat as "everything".
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the process-level settings that are not engine options.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, Required, OneOf("sqlite", "postgres"))
	v.Field("DB_URL", c.Database.DSN, Required)
	v.Field("QUEUE_WORKERS", c.Server.Workers, NonNegative)
	v.Field("OCR_DPI", c.OCR.DPI, InRange(72, 1200))
	return v.ConfigError()
}
