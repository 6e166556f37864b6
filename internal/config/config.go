package config

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"claimstat/adapters/delimited"
	"claimstat/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. CLAIMSTAT_ALPHA
const EnvPrefix = "CLAIMSTAT"

// DefaultConfigName is looked up as ./claimstat.yaml when no file is given
const DefaultConfigName = "claimstat"

var validate = validator.New()

// Config represents the complete application configuration
type Config struct {
	DataFile   string `mapstructure:"data_file" yaml:"data_file"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	SchemaFile string `mapstructure:"schema_file" yaml:"schema_file" validate:"omitempty,file"`

	Alpha           float64 `mapstructure:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	MinGroupSize    int     `mapstructure:"min_group_size" yaml:"min_group_size" validate:"gte=2"`
	YatesCorrection bool    `mapstructure:"yates_correction" yaml:"yates_correction"`

	LogLevel       string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogDevelopment bool   `mapstructure:"log_development" yaml:"log_development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_file", "")
	v.SetDefault("delimiter", "|")
	v.SetDefault("schema_file", "")
	v.SetDefault("alpha", 0.05)
	v.SetDefault("min_group_size", 30)
	v.SetDefault("yates_correction", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
}

// Load reads configuration from defaults, an optional YAML file and
// CLAIMSTAT_* environment variables, then validates it.
// Precedence: env > config file > defaults. An explicit cfgFile must exist.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("read config %s: %w", cfgFile, err))
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("read config: %w", err))
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("unmarshal config: %w", err))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges and the delimiter
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithCode(errors.CodeValidationError, fmt.Errorf("configuration validation failed: %w", err))
	}
	if _, err := delimited.ParseDelimiter(c.Delimiter); err != nil {
		return errors.WithCode(errors.CodeValidationError, err)
	}
	return nil
}

// DelimiterRune returns the parsed delimiter; Validate has already checked it
func (c Config) DelimiterRune() rune {
	r, err := delimited.ParseDelimiter(c.Delimiter)
	if err != nil {
		return delimited.DefaultDelimiter
	}
	return r
}
