package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	Build    string
	AppName  string

	WorkDir          string
	DefaultFromEmail mail.Address

	SendgridAPIKey string
	RollbarToken   string

	Gemini struct {
		APIKey string
		Model  string
	}

	Server struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	Storage struct {
		Backend   string // "file" | "redis"
		File      string
		RedisAddr string
		Key       string
	}
}

// NewConfig loads the application configuration from the environment,
// with an optional config/.env.<env> file loaded first.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "MaîtreNotifie")
	conf.SetDefault("defaultFromEmail", "MaîtreNotifie <eleves@musique-elancourt.fr>")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("geminiApiKey", "")
	conf.SetDefault("geminiModel", "gemini-3-flash-preview")
	conf.SetDefault("serverHost", ":8000")
	conf.SetDefault("serverDebugHost", ":8001")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("storageBackend", "file")
	conf.SetDefault("storageFile", filepath.Join("data", "roster.json"))
	conf.SetDefault("storageRedisAddr", "localhost:6379")
	conf.SetDefault("storageKey", "maestro_notifica_data_v3")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	from, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config: invalid defaultFromEmail: %v", err)
	}

	c := &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		WorkDir:          wd,
		DefaultFromEmail: *from,
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
	}
	c.Gemini.APIKey = conf.GetString("geminiApiKey")
	c.Gemini.Model = conf.GetString("geminiModel")
	c.Server.Host = conf.GetString("serverHost")
	c.Server.DebugHost = conf.GetString("serverDebugHost")
	c.Server.ShutdownTimeout = conf.GetDuration("serverShutdownTimeout")
	c.Storage.Backend = conf.GetString("storageBackend")
	c.Storage.File = conf.GetString("storageFile")
	c.Storage.RedisAddr = conf.GetString("storageRedisAddr")
	c.Storage.Key = conf.GetString("storageKey")
	return c
}
