package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
}

type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	PageSize       int           `mapstructure:"page_size"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type ReportConfig struct {
	TopUsers            int  `mapstructure:"top_users"`
	IncludeToolAnalysis bool `mapstructure:"include_tool_analysis"`
	MaxWorkers          int  `mapstructure:"max_workers"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("api.page_size", 1000)
	v.SetDefault("api.page_delay", "100ms")
	v.SetDefault("api.request_timeout", "30s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
	v.SetDefault("report.top_users", 10)
	v.SetDefault("report.include_tool_analysis", true)
	v.SetDefault("report.max_workers", 4)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file when present; environment variables alone
	// are a valid configuration.
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	if apiURL := v.GetString("THREAD_API_URL"); apiURL != "" {
		config.API.BaseURL = apiURL
	}

	// The remote API is the system's only data source; running without
	// it is a configuration error, not a degraded mode.
	if config.API.BaseURL == "" {
		return nil, fmt.Errorf("thread API base URL is required: set api.base_url or THREAD_API_URL")
	}

	return &config, nil
}
