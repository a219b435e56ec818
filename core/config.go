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
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		PublicRateLimit    float64 // requests per second, per client IP
		PublicRateBurst    int
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

	SignatureConfig struct {
		// Periods are the slot labels created for every day of a PER_SLOT session.
		Periods        []string
		MaxValueLength int
		// MaxDays caps the number of days a PER_SLOT session may span. Zero means no limit.
		MaxDays        int
	}

	Config struct {
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string
		WorkDir          string
		TimeZone         *time.Location // of the organisation; calendar days are read in it

		Server    ServerConfig
		Database  DatabaseConfig
		Signature SignatureConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV by default, TEST, QA, PROD) and the prefix of the variables to read,
// eg. DEV_DATABASE_NAME. A `config/.env.<env>` file is loaded first when it exists.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
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

	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Trainings")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:8080")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("timeZone", "UTC")

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.publicRateLimit", 5.0)
	conf.SetDefault("server.publicRateBurst", 10)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "trainings")
	conf.SetDefault("database.user", "trainings")
	conf.SetDefault("database.password", "trainings")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("signature.periods", []string{"MORNING", "AFTERNOON"})
	conf.SetDefault("signature.maxValueLength", 255)
	conf.SetDefault("signature.maxDays", 31)

	conf.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	tz, err := time.LoadLocation(conf.GetString("timeZone"))
	if err != nil {
		log.Fatalf("config.timeZone: %v", err)
	}

	return &Config{
		Build:            conf.GetString("build"),
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimSuffix(conf.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *fromEmail,
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		WorkDir:          wd,
		TimeZone:         tz,
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			DebugHost:          conf.GetString("server.debugHost"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
			PublicRateLimit:    conf.GetFloat64("server.publicRateLimit"),
			PublicRateBurst:    conf.GetInt("server.publicRateBurst"),
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
		Signature: SignatureConfig{
			Periods:        conf.GetStringSlice("signature.periods"),
			MaxValueLength: conf.GetInt("signature.maxValueLength"),
			MaxDays:        conf.GetInt("signature.maxDays"),
		},
	}
}
