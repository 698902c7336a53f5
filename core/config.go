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
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		Env              string
		Build            string
		SecretKey        string
		DefaultFromEmail mail.Address
		Location         *time.Location
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		RefDataPath      string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Notify   NotifyConfig
		Digest   DigestConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Channel  string
	}

	NotifyConfig struct {
		Recipients []mail.Address
		Redis      bool
	}

	DigestConfig struct {
		Enabled bool
		Spec    string
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (db DatabaseConfig) IsSQLite() bool {
	return db.Engine == "sqlite"
}

// NewConfig reads the configuration from the environment.
// Variables are prefixed with the value of ENV (DEV by default), e.g. DEV_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Attendance")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "d9#k2-la0!pq=x7v$hn+3mz&e8r(w)u*t5c(y4g^j6b%f1s")
	v.SetDefault("defaultFromEmail", "Attendance <noreply@localhost>")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("refdata.path", "")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "attendance")
	v.SetDefault("database.user", "attendance")
	v.SetDefault("database.password", "attendance")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "attendance.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "attendance:absent")

	v.SetDefault("notify.recipients", "")
	v.SetDefault("notify.redis", false)

	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.spec", "0 18 * * *")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Fatalf("config.LoadLocation(%s): %v", v.GetString("timezone"), err)
	}

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: parseAddress(v.GetString("defaultFromEmail")),
		Location:         loc,
		WorkDir:          wd,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RefDataPath:      v.GetString("refdata.path"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		Notify: NotifyConfig{
			Recipients: parseAddressList(v.GetString("notify.recipients")),
			Redis:      v.GetBool("notify.redis"),
		},
		Digest: DigestConfig{
			Enabled: v.GetBool("digest.enabled"),
			Spec:    v.GetString("digest.spec"),
		},
	}
}

func parseAddress(s string) mail.Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return mail.Address{Address: s}
	}
	return *addr
}

// parseAddressList parses a comma separated list of addresses, skipping invalid ones.
func parseAddressList(s string) []mail.Address {
	var addrs []mail.Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if addr, err := mail.ParseAddress(part); err == nil {
			addrs = append(addrs, *addr)
		}
	}
	return addrs
}
