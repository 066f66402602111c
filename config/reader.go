package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type ConfigSchema struct {
	Env     string `yaml:"env"`
	Backend struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		Service     string   `yaml:"service"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"backend"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	Storage struct {
		// Driver is one of memory, redis, sql.
		Driver string `yaml:"driver"`
		// Policy is last_write_wins or optimistic.
		Policy     string `yaml:"policy"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"storage"`
	Redis     RedisConfig `yaml:"redis"`
	Databases struct {
		// Driver is postgres or sqlite.
		Driver   string     `yaml:"driver"`
		Path     string     `yaml:"path"`
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Notifier struct {
		// Driver is local, redis or amqp.
		Driver   string `yaml:"driver"`
		AMQPURL  string `yaml:"amqp_url"`
		Exchange string `yaml:"exchange"`
		Buffer   int    `yaml:"buffer"`
	} `yaml:"notifier"`
	Admin struct {
		Name         string        `yaml:"name"`
		PasswordHash string        `yaml:"password_hash"`
		JWTSecret    string        `yaml:"jwt_secret"`
		TokenTTL     time.Duration `yaml:"token_ttl"`
	} `yaml:"admin"`
}

var AppConfig *ConfigSchema

// Default returns a configuration that runs fully in memory.
func Default() *ConfigSchema {
	conf := &ConfigSchema{}
	conf.applyDefaults()
	return conf
}

func (c *ConfigSchema) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Backend.Service == "" {
		c.Backend.Service = "ruangcerita"
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Policy == "" {
		c.Storage.Policy = "last_write_wins"
	}
	if c.Storage.MaxRetries <= 0 {
		c.Storage.MaxRetries = 5
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "ruangcerita:changes"
	}
	if c.Databases.Driver == "" {
		c.Databases.Driver = "sqlite"
	}
	if c.Databases.Path == "" {
		c.Databases.Path = "ruangcerita.db"
	}
	if c.Databases.Master.Port == 0 {
		c.Databases.Master.Port = 5432
	}
	if c.Notifier.Driver == "" {
		c.Notifier.Driver = "local"
	}
	if c.Notifier.Exchange == "" {
		c.Notifier.Exchange = "storage_events"
	}
	if c.Notifier.Buffer <= 0 {
		c.Notifier.Buffer = 64
	}
	if c.Admin.Name == "" {
		c.Admin.Name = "Admin"
	}
	if c.Admin.TokenTTL == 0 {
		c.Admin.TokenTTL = 12 * time.Hour
	}
}

func (c *ConfigSchema) applyEnv() {
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.Notifier.AMQPURL = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		c.Admin.PasswordHash = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
}

func (c *ConfigSchema) validate() error {
	switch c.Storage.Driver {
	case "memory", "redis", "sql":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Storage.Policy {
	case "last_write_wins", "optimistic":
	default:
		return fmt.Errorf("unknown storage policy %q", c.Storage.Policy)
	}
	switch c.Notifier.Driver {
	case "local", "redis", "amqp":
	default:
		return fmt.Errorf("unknown notifier driver %q", c.Notifier.Driver)
	}
	if c.Notifier.Driver == "amqp" && c.Notifier.AMQPURL == "" {
		return errors.New("notifier.amqp_url is required for the amqp driver")
	}
	return nil
}

// LoadConfig reads an optional .env file, then the yaml file at filePath,
// and installs the result as AppConfig.
func LoadConfig(filePath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	conf := &ConfigSchema{}
	if err = yaml.Unmarshal(data, conf); err != nil {
		return err
	}
	conf.applyDefaults()
	conf.applyEnv()
	if err = conf.validate(); err != nil {
		return err
	}
	AppConfig = conf
	return nil
}
