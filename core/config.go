package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		GeminiApiKey     string
		GeminiModel      string
		FounderEmails    []string
		AdminEmails      []string
		Server           ServerConfig
		Database         DatabaseConfig
		Redis            RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		StaticDir                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		CookieSecure              bool
		AIRateLimit               float64 // requests per second per user
		AIRateBurst               int
		// TrustedProxies lists the proxies (IPs or CIDRs) whose X-Forwarded-For is believed.
		// When empty, the client IP is the connection's remote address.
		TrustedProxies []string
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

	RedisConfig struct {
		Address  string
		Password string
		DB       int
		TTL      time.Duration
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// devSecretKey signs tokens in DEV and TEST only.
const devSecretKey = "k2#v9t!m-q$r0z@p8w^4c&x)6n(e=1b+7u*hs3jd_lfoya5g"

const minSecretKeyLen = 32

// checkSecretKey refuses, outside DEV and TEST, a secret key that is missing, the public dev key or too short.
func checkSecretKey(env, key string) error {
	if env == "DEV" || env == "TEST" {
		return nil
	}
	switch {
	case key == "":
		return errors.Errorf("%s_SECRETKEY is required in %s", env, env)
	case key == devSecretKey:
		return errors.Errorf("the development key cannot be used in %s; set %s_SECRETKEY", env, env)
	case len(key) < minSecretKeyLen:
		return errors.Errorf("must be at least %d characters long in %s", minSecretKeyLen, env)
	}
	return nil
}

// NewConfig loads the configuration of the current environment.
// ENV selects the environment (DEV by default) which is also the env var prefix, eg. DEV_SECRET_KEY.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "StudyPal")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", devSecretKey)
	conf.SetDefault("defaultFromEmail", "StudyPal <noreply@localhost>")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("geminiApiKey", "")
	conf.SetDefault("geminiModel", "gemini-1.5-flash")
	conf.SetDefault("founderEmails", "")
	conf.SetDefault("adminEmails", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugAddress", ":8001")
	conf.SetDefault("server.staticDir", "")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	conf.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("server.cookieSecure", env == "PROD" || env == "QA")
	conf.SetDefault("server.aiRateLimit", 0.2)
	conf.SetDefault("server.aiRateBurst", 10)
	conf.SetDefault("server.trustedProxies", "")

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "studypal")
	conf.SetDefault("database.user", "studypal")
	conf.SetDefault("database.password", "studypal")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("redis.address", "")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.ttl", 5*time.Minute)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// server.jwtExpirationDelta <- DEV_SERVER_JWTEXPIRATIONDELTA
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	if err := checkSecretKey(env, conf.GetString("secretKey")); err != nil {
		log.Fatalf("config.secretKey: %v", err)
	}

	fromEmail, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		Build:            conf.GetString("build"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: *fromEmail,
		FrontendBaseURL:  strings.TrimRight(conf.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		GeminiApiKey:     conf.GetString("geminiApiKey"),
		GeminiModel:      conf.GetString("geminiModel"),
		FounderEmails:    SplitList(conf.GetString("founderEmails")),
		AdminEmails:      SplitList(conf.GetString("adminEmails")),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Address:                   conf.GetString("server.address"),
			DebugAddress:              conf.GetString("server.debugAddress"),
			StaticDir:                 conf.GetString("server.staticDir"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: conf.GetDuration("server.passwordResetTimeoutDelta"),
			CookieSecure:              conf.GetBool("server.cookieSecure"),
			AIRateLimit:               conf.GetFloat64("server.aiRateLimit"),
			AIRateBurst:               conf.GetInt("server.aiRateBurst"),
			TrustedProxies:            SplitList(conf.GetString("server.trustedProxies")),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:  conf.GetString("redis.address"),
			Password: conf.GetString("redis.password"),
			DB:       conf.GetInt("redis.db"),
			TTL:      conf.GetDuration("redis.ttl"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no external services, sync mails, short tokens.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "StudyPal",
		Build:            "test",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Name: "StudyPal", Address: "noreply@localhost"},
		FrontendBaseURL:  "http://localhost:3000",
		FounderEmails:    []string{"founder@test.io"},
		AdminEmails:      []string{"admin@test.io"},
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
			AIRateLimit:               100,
			AIRateBurst:               100,
		},
		Redis: RedisConfig{TTL: time.Minute},
	}
}
