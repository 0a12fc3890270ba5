package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Grader   GraderConfig
		Layout   LayoutConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// GraderConfig holds the answer grading policy knobs.
	GraderConfig struct {
		SimilarityThreshold  float64
		MinContainmentLength int
	}

	// LayoutConfig is the grid used to place devices that have no stored position.
	LayoutConfig struct {
		OriginX  int
		OriginY  int
		CellSize int
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment (in that order).
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Cyber Lab")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "z1t$s@x!9w)c6n(kq+b_4ue^f0#y%m7r&l2=hgpa8j3dv5o")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverDebugHost", ":4000")
	conf.SetDefault("serverReadTimeout", 5*time.Second)
	conf.SetDefault("serverWriteTimeout", 5*time.Second)
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseName", "cyberlab")
	conf.SetDefault("databaseUser", "cyberlab")
	conf.SetDefault("databasePassword", "cyberlab")
	conf.SetDefault("databaseAdminUser", "postgres")
	conf.SetDefault("databaseAdminPassword", "postgres")
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("graderSimilarityThreshold", 0.8)
	conf.SetDefault("graderMinContainmentLength", 3)

	conf.SetDefault("layoutOriginX", 400)
	conf.SetDefault("layoutOriginY", 300)
	conf.SetDefault("layoutCellSize", 150)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Address:            conf.GetString("serverAddress"),
			DebugHost:          conf.GetString("serverDebugHost"),
			ReadTimeout:        conf.GetDuration("serverReadTimeout"),
			WriteTimeout:       conf.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Grader: GraderConfig{
			SimilarityThreshold:  conf.GetFloat64("graderSimilarityThreshold"),
			MinContainmentLength: conf.GetInt("graderMinContainmentLength"),
		},
		Layout: LayoutConfig{
			OriginX:  conf.GetInt("layoutOriginX"),
			OriginY:  conf.GetInt("layoutOriginY"),
			CellSize: conf.GetInt("layoutCellSize"),
		},
	}
}

// NewTestConfig returns the config used by tests: debug off (no rollbar), test mode on.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}
