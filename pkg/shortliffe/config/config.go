package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/cognicore/shortliffe/pkg/shortliffe/condition"
	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Parser    ParserConfig    `yaml:"parser" mapstructure:"parser"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections" validate:"gte=0"`
	StaticDir       string        `yaml:"static_dir" mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend" validate:"oneof=file sqlite memory"`
	Dir        string `yaml:"dir" mapstructure:"dir" validate:"required_if=Backend file"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
}

type InferenceConfig struct {
	MaxPasses int `yaml:"max_passes" mapstructure:"max_passes" validate:"gte=1"`
}

type QueryConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy" validate:"oneof=structural subset"`
}

type ParserConfig struct {
	Keywords condition.Keywords `yaml:"keywords" mapstructure:"keywords"`
}

type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// Default returns the configuration used when no file or env overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxConnections:  256,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Backend:    "file",
			Dir:        "knowledge_base",
			SQLitePath: "shortliffe.db",
		},
		Inference: InferenceConfig{MaxPasses: 100},
		Query:     QueryConfig{Strategy: "structural"},
		Parser:    ParserConfig{Keywords: condition.DefaultKeywords()},
		Log:       LogConfig{Level: "info"},
	}
}

// EnvPrefix prefixes every environment override, e.g. SHORTLIFFE_STORE_BACKEND.
const EnvPrefix = "SHORTLIFFE"

// Load reads configuration from path, or from shortliffe.yaml in the working
// directory or $XDG_CONFIG_HOME/shortliffe when path is empty. A missing
// file is not an error. Environment variables override the file, and PORT
// overrides the port of server.addr.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shortliffe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "shortliffe"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = withPort(cfg.Server.Addr, port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("inference.max_passes", d.Inference.MaxPasses)
	v.SetDefault("query.strategy", d.Query.Strategy)
	v.SetDefault("parser.keywords.and", d.Parser.Keywords.And)
	v.SetDefault("parser.keywords.or", d.Parser.Keywords.Or)
	v.SetDefault("parser.keywords.not", d.Parser.Keywords.Not)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

func withPort(addr, port string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = ""
	}
	return net.JoinHostPort(host, port)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateKeywords, condition.Keywords{})
	return v
}

// validateKeywords rejects blank keywords and words bound to two operators.
func validateKeywords(sl validator.StructLevel) {
	kw := sl.Current().Interface().(condition.Keywords)
	owner := make(map[string]string)
	check := func(field string, words []string) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				sl.ReportError(words, field, field, "required", "")
				return
			}
			if prev, ok := owner[w]; ok && prev != field {
				sl.ReportError(words, field, field, "unique", w)
				return
			}
			owner[w] = field
		}
	}
	check("And", kw.And)
	check("Or", kw.Or)
	check("Not", kw.Not)
}

// Validate checks c against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	return nil
}
