package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              int
	RoboflowAPIKey    string
	RoboflowAPIURL    string
	UpstreamTimeout   time.Duration // 0 = wait for upstream indefinitely
	ProxyURL          string        // Where the workbench sends inference requests
	DefaultModelID    string
	DefaultConfidence float64
	ContainerWidth    int
	MaxHeight         int
	UploadLimit       int
	UploadTTL         time.Duration
	MaxUploadSize     int64
	DBPath            string // Empty disables the run ledger
	LogDirectory      string
	AdminPassword     string // Empty leaves admin endpoints open
	PaletteFile       string
	Palette           Palette
}

// Palette maps lower-case class names to hex colors.
type Palette struct {
	Classes map[string]string `yaml:"classes"`
	Default string            `yaml:"default"`
}

// DefaultPalette is used for any class the palette file does not override.
func DefaultPalette() Palette {
	return Palette{
		Classes: map[string]string{
			"overripe": "#e67e22",
			"ripe":     "#27ae60",
			"unripe":   "#3498db",
		},
		Default: "#9b59b6",
	}
}

func Load() *Config {
	port := getEnvAsInt("PORT", 8080)

	cfg := &Config{
		Port:              port,
		RoboflowAPIKey:    os.Getenv("ROBOFLOW_API_KEY"),
		RoboflowAPIURL:    getEnv("ROBOFLOW_API_URL", "https://serverless.roboflow.com"),
		UpstreamTimeout:   getEnvAsDuration("UPSTREAM_TIMEOUT", 0),
		ProxyURL:          getEnv("PROXY_URL", fmt.Sprintf("http://127.0.0.1:%d/api/infer", port)),
		DefaultModelID:    getEnv("DEFAULT_MODEL_ID", "ripeness-detection_1/1"),
		DefaultConfidence: getEnvAsFloat("DEFAULT_CONFIDENCE", 0.25),
		ContainerWidth:    getEnvAsInt("CONTAINER_WIDTH", 800),
		MaxHeight:         getEnvAsInt("MAX_HEIGHT", 500),
		UploadLimit:       getEnvAsInt("UPLOAD_LIMIT", 16),
		UploadTTL:         getEnvAsDuration("UPLOAD_TTL", 30*time.Minute),
		MaxUploadSize:     getEnvAsInt64("MAX_UPLOAD_SIZE", 20<<20),
		DBPath:            getEnv("DB_PATH", filepath.Join(".", "data", "runs.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		PaletteFile:       os.Getenv("PALETTE_FILE"),
		Palette:           DefaultPalette(),
	}

	return cfg
}

// LoadDotEnv loads environment variables from path. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// LoadPalette reads a YAML palette file and merges it over the defaults.
//
//	classes:
//	  overripe: "#d35400"
//	  bruised: "#7f8c8d"
//	default: "#9b59b6"
func LoadPalette(path string) (Palette, error) {
	palette := DefaultPalette()
	if path == "" {
		return palette, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return palette, fmt.Errorf("read palette file: %w", err)
	}

	var file Palette
	if err := yaml.Unmarshal(data, &file); err != nil {
		return palette, fmt.Errorf("parse palette file %s: %w", path, err)
	}

	for class, hex := range file.Classes {
		palette.Classes[strings.ToLower(class)] = hex
	}
	if file.Default != "" {
		palette.Default = file.Default
	}

	return palette, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
