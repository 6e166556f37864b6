package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"claimstat/domain/policy"
)

// TypeCoercer converts raw cells to typed values according to a declared
// column type. Unparseable cells become missing, never an error.
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the accepted input formats
type CoercionConfig struct {
	DateLayouts []string `json:"date_layouts" yaml:"date_layouts"`
	TrueTokens  []string `json:"true_tokens" yaml:"true_tokens"`
	FalseTokens []string `json:"false_tokens" yaml:"false_tokens"`
}

// DefaultCoercionConfig returns the formats found in the policy extracts
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		DateLayouts: []string{
			"2006-01-02 15:04:05",
			"2006-01-02",
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006/01/02",
			"01/02/2006",
			"1/2006",
		},
		TrueTokens:  []string{"true", "1", "1.0"},
		FalseTokens: []string{"false", "0", "0.0"},
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if len(config.DateLayouts) == 0 {
		config.DateLayouts = DefaultCoercionConfig().DateLayouts
	}
	if len(config.TrueTokens) == 0 && len(config.FalseTokens) == 0 {
		def := DefaultCoercionConfig()
		config.TrueTokens, config.FalseTokens = def.TrueTokens, def.FalseTokens
	}
	return &TypeCoercer{config: config}
}

// Coerce converts one raw cell to the declared type
func (c *TypeCoercer) Coerce(raw string, t policy.ColumnType) policy.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return policy.NewMissingValue()
	}

	switch t {
	case policy.ColumnNumeric:
		if v, ok := c.parseNumeric(s); ok {
			return policy.NewNumericValue(v)
		}
	case policy.ColumnDate:
		if v, ok := c.parseDate(s); ok {
			return policy.NewTimestampValue(v)
		}
	case policy.ColumnBoolean:
		if v, ok := c.parseBoolean(s); ok {
			return policy.NewBooleanValue(v)
		}
	default:
		return policy.NewStringValue(s)
	}
	return policy.NewMissingValue()
}

// parseNumeric accepts plain decimal and scientific notation only
func (c *TypeCoercer) parseNumeric(s string) (float64, bool) {
	// ParseFloat would also take hex mantissas like 0x1p3
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (c *TypeCoercer) parseDate(s string) (time.Time, bool) {
	for _, layout := range c.config.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseBoolean matches tokens case-insensitively
func (c *TypeCoercer) parseBoolean(s string) (bool, bool) {
	for _, tok := range c.config.TrueTokens {
		if strings.EqualFold(s, tok) {
			return true, true
		}
	}
	for _, tok := range c.config.FalseTokens {
		if strings.EqualFold(s, tok) {
			return false, true
		}
	}
	return false, false
}
