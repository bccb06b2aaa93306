package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	ModeDebug   = "debug"
	ModeRelease = "release"
	ModeTest    = "test"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// MinReleaseSecretLength is the shortest jwt secret accepted in release mode.
	MinReleaseSecretLength = 32
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr         string
		Mode         string
		CORSOrigin   string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Database struct {
		Driver string
		Path   string
		DSN    string
	}
	Auth struct {
		JWTSecret         string
		TokenTTL          time.Duration
		EmailVerification bool
		VerifyURL         string
	}
	Storage struct {
		Bucket    string
		Region    string
		Endpoint  string
		AccessKey string
		SecretKey string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level  string
		Format string
	}
	Telemetry struct {
		Endpoint    string
		ServiceName string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("EDUNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.mode", ModeRelease)
	v.SetDefault("server.corsorigin", "http://localhost:3000")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 15*time.Second)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/edunet.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", 7*24*time.Hour)
	v.SetDefault("auth.emailverification", false)
	v.SetDefault("auth.verifyurl", "http://localhost:3000/verify-email")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.servicename", "edunet-connect")
}

// Validate fails fast on settings the server cannot run safely with.
func (c Config) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.Auth.JWTSecret)
	switch {
	case secret == "":
		errs = append(errs, errors.New("auth jwt secret is required"))
	case c.Server.Mode == ModeRelease && len(secret) < MinReleaseSecretLength:
		errs = append(errs, fmt.Errorf("auth jwt secret must be at least %d characters in release mode", MinReleaseSecretLength))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth token ttl must be positive"))
	}

	switch c.Server.Mode {
	case ModeDebug, ModeRelease, ModeTest:
	default:
		errs = append(errs, fmt.Errorf("unknown server mode %q", c.Server.Mode))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

// loadDotEnv exports variables from path without overriding the process environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
