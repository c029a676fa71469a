// Package config loads the run configuration: a YAML file, an optional .env file and
// CATLOAD_* environment overrides, applied in that order over the defaults in param.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	param "github.com/CatalogLoad/param"
)

type Database struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// ConnString returns the DSN handed to the driver. An explicit dsn wins over parts.
func (d Database) ConnString() string {
	if len(d.DSN) > 0 {
		return d.DSN
	}
	if d.Driver == param.DriverSQLite {
		return d.Name
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Search configures the optional Elasticsearch sink; no addresses disables it.
type Search struct {
	Addresses []string `yaml:"addresses"`
	Index     string   `yaml:"index"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
}

func (s Search) Enabled() bool { return len(s.Addresses) > 0 }

// RunLog configures the optional DynamoDB run ledger; no table disables it.
type RunLog struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
}

func (r RunLog) Enabled() bool { return len(r.Table) > 0 }

type AWS struct {
	Region string `yaml:"region"`
}

type Log struct {
	Mode  string `yaml:"mode"`
	Debug bool   `yaml:"debug"`
}

type Config struct {
	Input        string `yaml:"input"`
	HeaderLines  int    `yaml:"header_lines"`
	ReadBatch    int    `yaml:"read_batch"`
	Workers      int    `yaml:"workers"`
	BatchSize    int    `yaml:"batch_size"`
	OnParseError string `yaml:"on_parse_error"`
	ErrorLimit   int    `yaml:"error_limit"`

	Database Database `yaml:"database"`
	Search   Search   `yaml:"search"`
	RunLog   RunLog   `yaml:"runlog"`
	AWS      AWS      `yaml:"aws"`
	Log      Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		HeaderLines:  param.HeaderLines,
		ReadBatch:    param.ReadBatch,
		Workers:      param.Workers,
		BatchSize:    param.BatchSize,
		OnParseError: param.OnErrorSkip,
		ErrorLimit:   param.ErrorLimit,
		Database: Database{
			Driver:  param.DriverPostgres,
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "catalog",
			SSLMode: "disable",
		},
		Search: Search{Index: param.SearchIndex},
		AWS:    AWS{Region: param.AWSRegion},
		Log:    Log{Mode: "dev"},
	}
}

// Load reads path (may be empty) and envFile (may be empty or missing) and applies the
// environment. The result is validated.
func Load(path string, envFile string) (Config, error) {
	cfg := Default()

	if len(envFile) > 0 {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	if len(path) > 0 {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HeaderLines < 0 {
		errs = append(errs, fmt.Errorf("header_lines must be >= 0, got %d", c.HeaderLines))
	}
	if c.ReadBatch < 1 {
		errs = append(errs, fmt.Errorf("read_batch must be >= 1, got %d", c.ReadBatch))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize))
	}
	if c.ErrorLimit < 0 {
		errs = append(errs, fmt.Errorf("error_limit must be >= 0, got %d", c.ErrorLimit))
	}
	switch c.OnParseError {
	case param.OnErrorSkip, param.OnErrorAbort:
	default:
		errs = append(errs, fmt.Errorf("on_parse_error must be %q or %q, got %q", param.OnErrorSkip, param.OnErrorAbort, c.OnParseError))
	}
	switch c.Database.Driver {
	case param.DriverPostgres, param.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", param.DriverPostgres, param.DriverSQLite, c.Database.Driver))
	}
	if c.Search.Enabled() && len(c.Search.Index) == 0 {
		errs = append(errs, errors.New("search.index must be set when search.addresses is"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var err error
	num := func(name string, dst *int) {
		v := strings.TrimSpace(os.Getenv(name))
		if len(v) == 0 || err != nil {
			return
		}
		i, e := strconv.Atoi(v)
		if e != nil {
			err = fmt.Errorf("%s: %q is not an integer", name, v)
			return
		}
		*dst = i
	}

	str("CATLOAD_INPUT", &c.Input)
	num("CATLOAD_WORKERS", &c.Workers)
	num("CATLOAD_BATCH_SIZE", &c.BatchSize)
	num("CATLOAD_ERROR_LIMIT", &c.ErrorLimit)
	str("CATLOAD_ON_PARSE_ERROR", &c.OnParseError)

	str("CATLOAD_DB_DRIVER", &c.Database.Driver)
	str("CATLOAD_DB_DSN", &c.Database.DSN)
	str("CATLOAD_DB_HOST", &c.Database.Host)
	num("CATLOAD_DB_PORT", &c.Database.Port)
	str("CATLOAD_DB_USER", &c.Database.User)
	str("CATLOAD_DB_PASSWORD", &c.Database.Password)
	str("CATLOAD_DB_NAME", &c.Database.Name)

	if v := strings.TrimSpace(os.Getenv("CATLOAD_ES_ADDRESSES")); len(v) > 0 {
		c.Search.Addresses = strings.Split(v, ",")
	}
	str("CATLOAD_RUNLOG_TABLE", &c.RunLog.Table)
	str("CATLOAD_AWS_REGION", &c.AWS.Region)
	str("CATLOAD_LOG_MODE", &c.Log.Mode)

	return err
}
