package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the app configuration.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default), TEST, QA, PROD
	AppName  string
	Build    string
	WorkDir  string

	SecretKey        string
	RollbarToken     string
	SendgridApiKey   string
	DefaultFromEmail string
	AlertEmails      []string // security alert recipients

	Server struct {
		Host               string
		Port               int
		JWTExpirationDelta time.Duration
	}

	Database struct {
		Engine     string
		Name       string
		Host       string
		Port       int
		User       string
		Password   string
		DisableTLS bool
	}

	// Guard holds the session & input integrity tunables.
	Guard struct {
		RateLimitWindow        time.Duration
		RateLimitSweepInterval time.Duration
		CSRFTokenTTL           time.Duration
		SessionTTL             time.Duration
		SessionPollInterval    time.Duration
		SessionWarnThreshold   time.Duration
		EventRetention         time.Duration
	}
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables (prefixed with the env name).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Ngao")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "k2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz&uoxh2(h!x)")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("alertEmails", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("jwtExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "ngao")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseUser", "")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("rateLimitWindow", time.Minute)
	v.SetDefault("rateLimitSweepInterval", 5*time.Minute)
	v.SetDefault("csrfTokenTTL", 5*time.Minute)
	v.SetDefault("sessionTTL", 30*time.Minute)
	v.SetDefault("sessionPollInterval", 30*time.Second)
	v.SetDefault("sessionWarnThreshold", 5*time.Minute)
	v.SetDefault("eventRetention", 90*24*time.Hour)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
	}
	if emails := v.GetString("alertEmails"); emails != "" {
		for _, e := range strings.Split(emails, ",") {
			conf.AlertEmails = append(conf.AlertEmails, strings.TrimSpace(e))
		}
	}

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetInt("serverPort")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")

	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetInt("databasePort")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTLS")

	conf.Guard.RateLimitWindow = v.GetDuration("rateLimitWindow")
	conf.Guard.RateLimitSweepInterval = v.GetDuration("rateLimitSweepInterval")
	conf.Guard.CSRFTokenTTL = v.GetDuration("csrfTokenTTL")
	conf.Guard.SessionTTL = v.GetDuration("sessionTTL")
	conf.Guard.SessionPollInterval = v.GetDuration("sessionPollInterval")
	conf.Guard.SessionWarnThreshold = v.GetDuration("sessionWarnThreshold")
	conf.Guard.EventRetention = v.GetDuration("eventRetention")

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) validate() error {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.AppName, "appName"),
		vala.StringNotEmpty(conf.SecretKey, "secretKey"),
		vala.StringNotEmpty(conf.Database.Engine, "databaseEngine"),
	).Check(); err != nil {
		return errors.Wrap(err, "validating config")
	}

	durations := map[string]time.Duration{
		"rateLimitWindow":        conf.Guard.RateLimitWindow,
		"rateLimitSweepInterval": conf.Guard.RateLimitSweepInterval,
		"csrfTokenTTL":           conf.Guard.CSRFTokenTTL,
		"sessionTTL":             conf.Guard.SessionTTL,
		"sessionPollInterval":    conf.Guard.SessionPollInterval,
		"sessionWarnThreshold":   conf.Guard.SessionWarnThreshold,
	}
	for name, d := range durations {
		if d <= 0 {
			return errors.Errorf("validating config: %s must be positive", name)
		}
	}
	return nil
}

func (conf *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", conf.Database.Host, conf.Database.Port)
}

// FromEmail is the default sender address for outgoing alerts.
func (conf *Config) FromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail}
}
