package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string
		Build        string
		SecretKey    string
		RollbarToken string

		Server      ServerConfig
		Database    DatabaseConfig
		Catalog     TimeoutConfig
		Store       TimeoutConfig
		Session     SessionConfig
		Recognition RecognitionConfig
	}

	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		DisableRequestLogs bool
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine     string // postgres | sqlite
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		DisableTLS bool
		Path       string // sqlite only
	}

	TimeoutConfig struct {
		Timeout time.Duration
	}

	SessionConfig struct {
		// IdleTimeout is how long an active session may go without a frame before the sweep closes it.
		IdleTimeout   time.Duration
		SweepInterval time.Duration
	}

	RecognitionConfig struct {
		Engine  string // console | http
		URL     string
		Timeout time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

// NewConfig reads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD. Variables are prefixed with it, e.g. `DEV_DEBUG`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "ZonoSign")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "8zq#kd0)s3n!+v1w=ut&@hx5l(2c$g9y^r7b*ma4o6pjf")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.disableRequestLogs", false)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.user", "zonosign")
	conf.SetDefault("database.password", "zonosign")
	conf.SetDefault("database.name", "zonosign")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.path", "zonosign.db")

	conf.SetDefault("catalog.timeout", 2*time.Second)
	conf.SetDefault("store.timeout", 3*time.Second)
	conf.SetDefault("session.idleTimeout", 10*time.Minute)
	conf.SetDefault("session.sweepInterval", time.Minute)
	conf.SetDefault("recognition.engine", "console")
	conf.SetDefault("recognition.url", "")
	conf.SetDefault("recognition.timeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("database.engine", "sqlite")
		conf.SetDefault("database.path", ":memory:")
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:            conf.GetString("server.address"),
			Host:               conf.GetString("server.host"),
			DebugHost:          conf.GetString("server.debugHost"),
			DisableRequestLogs: conf.GetBool("server.disableRequestLogs"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("database.engine"),
			Host:       conf.GetString("database.host"),
			Port:       conf.GetString("database.port"),
			User:       conf.GetString("database.user"),
			Password:   conf.GetString("database.password"),
			Name:       conf.GetString("database.name"),
			DisableTLS: conf.GetBool("database.disableTLS"),
			Path:       conf.GetString("database.path"),
		},
		Catalog: TimeoutConfig{Timeout: conf.GetDuration("catalog.timeout")},
		Store:   TimeoutConfig{Timeout: conf.GetDuration("store.timeout")},
		Session: SessionConfig{
			IdleTimeout:   conf.GetDuration("session.idleTimeout"),
			SweepInterval: conf.GetDuration("session.sweepInterval"),
		},
		Recognition: RecognitionConfig{
			Engine:  conf.GetString("recognition.engine"),
			URL:     conf.GetString("recognition.url"),
			Timeout: conf.GetDuration("recognition.timeout"),
		},
	}
}

// NewTestConfig returns the configuration used by package tests.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Database.Engine = "sqlite"
	conf.Database.Path = ":memory:"
	conf.Server.DisableRequestLogs = true
	conf.RollbarToken = ""
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s[%s] env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
