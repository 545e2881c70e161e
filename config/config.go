package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Advisory AdvisoryConfig
	Triage   TriageConfig
	Rooms    RoomsConfig
	Fanout   FanoutConfig
}

type AppConfig struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	LogLevel string
}

// RedisConfig is optional: with Enabled false tokens and fanout stay local.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// AdvisoryConfig points at the external symptom analyzer.
type AdvisoryConfig struct {
	BaseURL       string
	Timeout       time.Duration
	ProbeInterval time.Duration
}

// TriageConfig holds the manual-fallback bands. Temperatures are in °F.
type TriageConfig struct {
	CriticalPulseMin      int
	CriticalPulseMax      int
	UrgentPulseMin        int
	UrgentPulseMax        int
	CriticalTempMinF      float64
	CriticalTempMaxF      float64
	UrgentTempMaxF        float64
	CriticalSystolicMin   int
	CriticalSystolicMax   int
	CriticalDiastolicMax  int
	UrgentSystolicMax     int
	UrgentDiastolicMax    int
	CriticalSymptoms      []string
	UrgentSymptoms        []string
	MinAdvisoryConfidence float64
}

type RoomsConfig struct {
	PoolSize    int
	LabelPrefix string
}

type FanoutConfig struct {
	Channel         string
	RefreshInterval time.Duration
}

var configFile = ".env"

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOW_ORIGIN", "*")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "warn")
	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")

	viper.SetDefault("ADVISORY_BASE_URL", "http://127.0.0.1:8000")
	viper.SetDefault("ADVISORY_TIMEOUT", "2s")
	viper.SetDefault("ADVISORY_PROBE_INTERVAL", "15s")

	viper.SetDefault("TRIAGE_CRITICAL_PULSE_MIN", 50)
	viper.SetDefault("TRIAGE_CRITICAL_PULSE_MAX", 120)
	viper.SetDefault("TRIAGE_URGENT_PULSE_MIN", 60)
	viper.SetDefault("TRIAGE_URGENT_PULSE_MAX", 100)
	viper.SetDefault("TRIAGE_CRITICAL_TEMP_MIN_F", 95.0)
	viper.SetDefault("TRIAGE_CRITICAL_TEMP_MAX_F", 103.0)
	viper.SetDefault("TRIAGE_URGENT_TEMP_MAX_F", 100.4)
	viper.SetDefault("TRIAGE_CRITICAL_SYSTOLIC_MIN", 90)
	viper.SetDefault("TRIAGE_CRITICAL_SYSTOLIC_MAX", 180)
	viper.SetDefault("TRIAGE_CRITICAL_DIASTOLIC_MAX", 120)
	viper.SetDefault("TRIAGE_URGENT_SYSTOLIC_MAX", 160)
	viper.SetDefault("TRIAGE_URGENT_DIASTOLIC_MAX", 100)
	viper.SetDefault("TRIAGE_CRITICAL_SYMPTOMS", "chest_pain,breathing,bleeding,unconscious,stroke,seizure")
	viper.SetDefault("TRIAGE_URGENT_SYMPTOMS", "fever,pain,vomiting,fracture,burn,allergic")
	viper.SetDefault("TRIAGE_MIN_ADVISORY_CONFIDENCE", 0.0)

	viper.SetDefault("ROOM_POOL_SIZE", 6)
	viper.SetDefault("ROOM_LABEL_PREFIX", "R")

	viper.SetDefault("FANOUT_CHANNEL", "triage:changes")
	viper.SetDefault("STATS_REFRESH_INTERVAL", "30s")
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(configFile)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	return build(), nil
}

// WatchTriage reloads the configuration whenever the .env file changes and
// hands the fresh triage bands to onChange.
func WatchTriage(onChange func(TriageConfig)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(build().Triage)
	})
	viper.WatchConfig()
}

func build() *Config {
	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 12 * time.Hour
	}

	return &Config{
		App: AppConfig{
			Port:            viper.GetString("APP_PORT"),
			Env:             viper.GetString("APP_ENV"),
			LogLevel:        viper.GetString("LOG_LEVEL"),
			CORSAllowOrigin: viper.GetString("CORS_ALLOW_ORIGIN"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			LogLevel: viper.GetString("DB_LOG_LEVEL"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Advisory: AdvisoryConfig{
			BaseURL:       viper.GetString("ADVISORY_BASE_URL"),
			Timeout:       viper.GetDuration("ADVISORY_TIMEOUT"),
			ProbeInterval: viper.GetDuration("ADVISORY_PROBE_INTERVAL"),
		},
		Triage: TriageConfig{
			CriticalPulseMin:      viper.GetInt("TRIAGE_CRITICAL_PULSE_MIN"),
			CriticalPulseMax:      viper.GetInt("TRIAGE_CRITICAL_PULSE_MAX"),
			UrgentPulseMin:        viper.GetInt("TRIAGE_URGENT_PULSE_MIN"),
			UrgentPulseMax:        viper.GetInt("TRIAGE_URGENT_PULSE_MAX"),
			CriticalTempMinF:      viper.GetFloat64("TRIAGE_CRITICAL_TEMP_MIN_F"),
			CriticalTempMaxF:      viper.GetFloat64("TRIAGE_CRITICAL_TEMP_MAX_F"),
			UrgentTempMaxF:        viper.GetFloat64("TRIAGE_URGENT_TEMP_MAX_F"),
			CriticalSystolicMin:   viper.GetInt("TRIAGE_CRITICAL_SYSTOLIC_MIN"),
			CriticalSystolicMax:   viper.GetInt("TRIAGE_CRITICAL_SYSTOLIC_MAX"),
			CriticalDiastolicMax:  viper.GetInt("TRIAGE_CRITICAL_DIASTOLIC_MAX"),
			UrgentSystolicMax:     viper.GetInt("TRIAGE_URGENT_SYSTOLIC_MAX"),
			UrgentDiastolicMax:    viper.GetInt("TRIAGE_URGENT_DIASTOLIC_MAX"),
			CriticalSymptoms:      splitList(viper.GetString("TRIAGE_CRITICAL_SYMPTOMS")),
			UrgentSymptoms:        splitList(viper.GetString("TRIAGE_URGENT_SYMPTOMS")),
			MinAdvisoryConfidence: viper.GetFloat64("TRIAGE_MIN_ADVISORY_CONFIDENCE"),
		},
		Rooms: RoomsConfig{
			PoolSize:    viper.GetInt("ROOM_POOL_SIZE"),
			LabelPrefix: viper.GetString("ROOM_LABEL_PREFIX"),
		},
		Fanout: FanoutConfig{
			Channel:         viper.GetString("FANOUT_CHANNEL"),
			RefreshInterval: viper.GetDuration("STATS_REFRESH_INTERVAL"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
