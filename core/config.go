package core

import (
	"fmt"
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
		LoginRateLimit     time.Duration // minimum interval between login attempts of one client
		LoginBurst         int
		DisableReqLogs     bool
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

	CacheConfig struct {
		Engine   string // redis | memory
		Addr     string
		Password string
		DB       int
		DraftTTL time.Duration
	}

	RankingConfig struct {
		AnimationDuration time.Duration
		Easing            string
		RowHeight         float64
		RowGap            float64
	}

	AssignmentConfig struct {
		Schedule string        // cron spec, with seconds
		Horizon  time.Duration // sessions starting within Horizon are assigned
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		AdminEmail       mail.Address
		FrontendBaseURL  string

		Server     ServerConfig
		Database   DatabaseConfig
		Cache      CacheConfig
		Ranking    RankingConfig
		Assignment AssignmentConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, PROD).
// Values come from the environment, prefixed with the environment name, after loading
// config/.env.<env> when it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          workDir,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: parseAddress(v.GetString("defaultFromEmail")),
		AdminEmail:       parseAddress(v.GetString("adminEmail")),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			LoginRateLimit:     v.GetDuration("server.loginRateLimit"),
			LoginBurst:         v.GetInt("server.loginBurst"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
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
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Cache: CacheConfig{
			Engine:   v.GetString("cache.engine"),
			Addr:     v.GetString("cache.addr"),
			Password: v.GetString("cache.password"),
			DB:       v.GetInt("cache.db"),
			DraftTTL: v.GetDuration("cache.draftTtl"),
		},
		Ranking: RankingConfig{
			AnimationDuration: v.GetDuration("ranking.animationDuration"),
			Easing:            v.GetString("ranking.easing"),
			RowHeight:         v.GetFloat64("ranking.rowHeight"),
			RowGap:            v.GetFloat64("ranking.rowGap"),
		},
		Assignment: AssignmentConfig{
			Schedule: v.GetString("assignment.schedule"),
			Horizon:  v.GetDuration("assignment.horizon"),
		},
	}
	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Khollendar")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env != "PROD")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "k7#q!w1x9-zr$+a2=dn&uoxh4(h!y)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Khollendar <noreply@localhost>")
	v.SetDefault("adminEmail", "Admin <admin@localhost>")
	v.SetDefault("frontendBaseUrl", "http://localhost:8000")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.loginRateLimit", 3*time.Second)
	v.SetDefault("server.loginBurst", 5)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "khollendar")
	v.SetDefault("database.user", "khollendar")
	v.SetDefault("database.password", "khollendar")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTls", env != "PROD")

	v.SetDefault("cache.engine", "memory")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.draftTtl", 2*time.Hour)

	v.SetDefault("ranking.animationDuration", 300*time.Millisecond)
	v.SetDefault("ranking.easing", "ease-out")
	v.SetDefault("ranking.rowHeight", 56.0)
	v.SetDefault("ranking.rowGap", 8.0)

	v.SetDefault("assignment.schedule", "0 0 2 * * *")
	v.SetDefault("assignment.horizon", 72*time.Hour)
}

func parseAddress(s string) mail.Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		log.Fatal(fmt.Sprintf("config: invalid email address %q: %v", s, err))
	}
	return *addr
}

// NewTestConfig returns the configuration used by tests, without touching the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v, "TEST")
	return &Config{
		AppName:          v.GetString("appName"),
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "secret",
		DefaultFromEmail: parseAddress(v.GetString("defaultFromEmail")),
		AdminEmail:       parseAddress(v.GetString("adminEmail")),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		Server: ServerConfig{
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			LoginRateLimit:     time.Millisecond,
			LoginBurst:         1000,
			DisableReqLogs:     true,
		},
		Cache: CacheConfig{Engine: "memory", DraftTTL: time.Hour},
		Ranking: RankingConfig{
			AnimationDuration: v.GetDuration("ranking.animationDuration"),
			Easing:            v.GetString("ranking.easing"),
			RowHeight:         v.GetFloat64("ranking.rowHeight"),
			RowGap:            v.GetFloat64("ranking.rowGap"),
		},
		Assignment: AssignmentConfig{
			Schedule: v.GetString("assignment.schedule"),
			Horizon:  v.GetDuration("assignment.horizon"),
		},
	}
}
