package policy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"claimstat/domain/core"
)

// ColumnType is the declared type of a column
type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnDate        ColumnType = "date"
	ColumnBoolean     ColumnType = "boolean"
	ColumnCategorical ColumnType = "categorical"
)

// Valid reports whether t is one of the known column types
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnNumeric, ColumnDate, ColumnBoolean, ColumnCategorical:
		return true
	}
	return false
}

// IsCategorical reports whether values of this type can label a contingency table
func (t ColumnType) IsCategorical() bool {
	return t == ColumnCategorical || t == ColumnBoolean
}

// Source columns of the policy table
const (
	ColTotalPremium             = "TotalPremium"
	ColTotalClaims              = "TotalClaims"
	ColCapitalOutstanding       = "CapitalOutstanding"
	ColSumInsured               = "SumInsured"
	ColCalculatedPremiumPerTerm = "CalculatedPremiumPerTerm"
	ColTransactionMonth         = "TransactionMonth"
	ColVehicleIntroDate         = "VehicleIntroDate"
	ColCrossBorder              = "CrossBorder"
	ColGender                   = "Gender"
	ColProvince                 = "Province"
	ColPostalCode               = "PostalCode"
	ColZipCode                  = "ZipCode"
	ColVehicleType              = "VehicleType"
	ColTrackingDevice           = "TrackingDevice"
	ColCoverType                = "CoverType"
	ColMake                     = "make"
)

// Derived columns
const (
	ColHasClaim      = "HasClaim"
	ColClaimSeverity = "ClaimSeverity"
	ColMargin        = "Margin"
)

// Schema maps column names to declared types. Columns it does not name are
// categorical.
type Schema struct {
	Columns map[string]ColumnType `yaml:"columns" json:"columns"`
	// Aliases maps an alternative name to the column it addresses.
	Aliases map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// DefaultSchema returns the types used by the insurance policy dataset
func DefaultSchema() Schema {
	return Schema{
		Columns: map[string]ColumnType{
			ColTotalPremium:             ColumnNumeric,
			ColTotalClaims:              ColumnNumeric,
			ColCapitalOutstanding:       ColumnNumeric,
			ColSumInsured:               ColumnNumeric,
			ColCalculatedPremiumPerTerm: ColumnNumeric,
			ColTransactionMonth:         ColumnDate,
			ColVehicleIntroDate:         ColumnDate,
			ColCrossBorder:              ColumnBoolean,
			ColHasClaim:                 ColumnBoolean,
			ColClaimSeverity:            ColumnNumeric,
			ColMargin:                   ColumnNumeric,
		},
		Aliases: map[string]string{
			ColZipCode: ColPostalCode,
		},
	}
}

// TypeOf returns the declared type of a column
func (s Schema) TypeOf(column string) ColumnType {
	if t, ok := s.Columns[s.Resolve(column)]; ok {
		return t
	}
	return ColumnCategorical
}

// Resolve maps an alias to its canonical column name
func (s Schema) Resolve(column string) string {
	if target, ok := s.Aliases[column]; ok {
		return target
	}
	return column
}

// With returns a copy of the schema with one column declared
func (s Schema) With(column string, t ColumnType) Schema {
	out := s.Clone()
	out.Columns[column] = t
	return out
}

// Clone returns a deep copy
func (s Schema) Clone() Schema {
	out := Schema{
		Columns: make(map[string]ColumnType, len(s.Columns)),
		Aliases: make(map[string]string, len(s.Aliases)),
	}
	for k, v := range s.Columns {
		out.Columns[k] = v
	}
	for k, v := range s.Aliases {
		out.Aliases[k] = v
	}
	return out
}

// Validate checks every declared type and alias
func (s Schema) Validate() error {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty column name", core.ErrInvalidSchema)
		}
		if t := s.Columns[name]; !t.Valid() {
			return fmt.Errorf("%w: column %s has unknown type %q", core.ErrInvalidSchema, name, t)
		}
	}
	for alias, target := range s.Aliases {
		if alias == "" || target == "" {
			return fmt.Errorf("%w: empty alias", core.ErrInvalidSchema)
		}
		if _, chained := s.Aliases[target]; chained {
			return fmt.Errorf("%w: alias %s points at another alias", core.ErrInvalidSchema, alias)
		}
	}
	return nil
}

// LoadSchema reads a YAML schema file
func LoadSchema(path string) (Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(b)
}

// ParseSchema decodes and validates a YAML schema document
func ParseSchema(b []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Schema{}, fmt.Errorf("%w: %v", core.ErrInvalidSchema, err)
	}
	if s.Columns == nil {
		s.Columns = map[string]ColumnType{}
	}
	if s.Aliases == nil {
		s.Aliases = map[string]string{}
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// SaveSchema writes the schema as YAML
func SaveSchema(s Schema, path string) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
