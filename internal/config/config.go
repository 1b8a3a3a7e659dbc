package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"

	DispatcherLocal    = "local"
	DispatcherRabbitMQ = "rabbitmq"
)

type Config struct {
	AppName string `yaml:"appName"`
	AppEnv  string `yaml:"appEnv"`
	AppPort string `yaml:"appPort"`

	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Task      TaskConfig      `yaml:"task"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	RedisPassword string `yaml:"password"`
	RedisDB       string `yaml:"db"`
}

// Enabled reports whether a redis server is configured at all.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

// TaskConfig selects the task registry and dispatcher backends.
// SimulatedLatency is the artificial delay applied before every deferred creation.
type TaskConfig struct {
	Registry         string        `yaml:"registry"`
	Dispatcher       string        `yaml:"dispatcher"`
	Queue            string        `yaml:"queue"`
	SimulatedLatency time.Duration `yaml:"simulatedLatency"`
}

type WorkerConfig struct {
	Concurrency int    `yaml:"concurrency"`
	MetricsPort string `yaml:"metricsPort"`
}

type RateLimitConfig struct {
	Capacity   int     `yaml:"capacity"`
	RefillRate float64 `yaml:"refillRate"`
}

func defaults() *Config {
	return &Config{
		AppName: "events-api",
		AppEnv:  "development",
		AppPort: "8087",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "events",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Port:    "6379",
			RedisDB: "0",
		},
		Task: TaskConfig{
			Registry:         RegistryMemory,
			Dispatcher:       DispatcherLocal,
			Queue:            "creation_queue",
			SimulatedLatency: 10 * time.Second,
		},
		Worker: WorkerConfig{
			Concurrency: 3,
			MetricsPort: "8088",
		},
		RateLimit: RateLimitConfig{
			Capacity:   20,
			RefillRate: 10.0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at
// CFG_PATH and finally environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CFG_PATH"); path != "" {
		buff, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buff, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	setString(&cfg.AppName, "APP_NAME")
	setString(&cfg.AppEnv, "APP_ENV")
	setString(&cfg.AppPort, "APP_PORT")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.DB.Host, "DB_HOST")
	setString(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")

	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Redis.RedisDB, "REDIS_DB")

	setString(&cfg.RabbitMQ.URL, "RABBITMQ_URL")

	setString(&cfg.Task.Registry, "TASK_REGISTRY")
	setString(&cfg.Task.Dispatcher, "TASK_DISPATCHER")
	setString(&cfg.Task.Queue, "TASK_QUEUE")
	setString(&cfg.Worker.MetricsPort, "WORKER_METRICS_PORT")

	if v := os.Getenv("TASK_SIMULATED_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASK_SIMULATED_LATENCY: %w", err)
		}
		cfg.Task.SimulatedLatency = d
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
		}
		cfg.Worker.Concurrency = n
	}
	if v := os.Getenv("RATE_LIMIT_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_CAPACITY: %w", err)
		}
		cfg.RateLimit.Capacity = n
	}
	if v := os.Getenv("RATE_LIMIT_REFILL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL: %w", err)
		}
		cfg.RateLimit.RefillRate = f
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected task backends can actually work together.
func (c *Config) Validate() error {
	switch c.Task.Registry {
	case RegistryMemory:
	case RegistryRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("task registry %q requires REDIS_HOST", RegistryRedis)
		}
	default:
		return fmt.Errorf("unknown task registry %q", c.Task.Registry)
	}

	switch c.Task.Dispatcher {
	case DispatcherLocal:
	case DispatcherRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("task dispatcher %q requires RABBITMQ_URL", DispatcherRabbitMQ)
		}
		// a separate worker process cannot see an in-memory registry
		if c.Task.Registry != RegistryRedis {
			return fmt.Errorf("task dispatcher %q requires task registry %q", DispatcherRabbitMQ, RegistryRedis)
		}
	default:
		return fmt.Errorf("unknown task dispatcher %q", c.Task.Dispatcher)
	}

	if c.Task.SimulatedLatency < 0 {
		return fmt.Errorf("simulated latency must not be negative")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive")
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.RefillRate <= 0 {
		return fmt.Errorf("rate limit capacity and refill rate must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
