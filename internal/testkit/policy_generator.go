package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"claimstat/adapters/coercer"
	"claimstat/domain/policy"
)

// PolicyGeneratorConfig configures the synthetic policy table generator
type PolicyGeneratorConfig struct {
	Policies      int                `json:"policies"`
	Provinces     []string           `json:"provinces"`
	PostalCodes   []string           `json:"postal_codes"`
	ClaimRate     float64            `json:"claim_rate"`
	ProvinceRates map[string]float64 `json:"province_rates,omitempty"`
	TrackingShare float64            `json:"tracking_share"`
	MeanPremium   float64            `json:"mean_premium"`
	MeanClaim     float64            `json:"mean_claim"`
	MissingRate   float64            `json:"missing_rate"` // share of rows with an empty Gender
	StartMonth    time.Time          `json:"start_month"`
	Months        int                `json:"months"`
	Seed          int64              `json:"seed"`
}

// DefaultPolicyConfig returns sensible defaults for policy data generation
func DefaultPolicyConfig() PolicyGeneratorConfig {
	return PolicyGeneratorConfig{
		Policies:      600,
		Provinces:     []string{"Gauteng", "KwaZulu-Natal", "Western Cape"},
		PostalCodes:   []string{"2000", "4001", "7100"},
		ClaimRate:     0.2,
		TrackingShare: 0.4,
		MeanPremium:   120,
		MeanClaim:     900,
		StartMonth:    time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC),
		Months:        12,
		Seed:          42,
	}
}

// PolicyHeaders are the columns written by the generator
var PolicyHeaders = []string{
	"PolicyID",
	policy.ColTransactionMonth,
	policy.ColProvince,
	policy.ColPostalCode,
	policy.ColGender,
	policy.ColVehicleType,
	policy.ColMake,
	policy.ColCoverType,
	policy.ColTrackingDevice,
	policy.ColCrossBorder,
	policy.ColCapitalOutstanding,
	policy.ColTotalPremium,
	policy.ColTotalClaims,
}

// PolicyGenerator generates synthetic, reproducible policy rows
type PolicyGenerator struct {
	config PolicyGeneratorConfig
	rng    *rand.Rand
}

// NewPolicyGenerator creates a generator seeded from the config
func NewPolicyGenerator(config PolicyGeneratorConfig) *PolicyGenerator {
	return &PolicyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Rows generates the raw string rows, header excluded
func (g *PolicyGenerator) Rows() [][]string {
	rows := make([][]string, 0, g.config.Policies)
	genders := []string{"Male", "Female"}
	vehicles := []string{"Passenger Vehicle", "Medium Commercial"}
	makes := []string{"TOYOTA", "VOLKSWAGEN", "NISSAN"}
	covers := []string{"Own Damage", "Windscreen", "Third Party"}

	for i := 0; i < g.config.Policies; i++ {
		pi := i % len(g.config.Provinces)
		province := g.config.Provinces[pi]
		postal := g.config.PostalCodes[pi%len(g.config.PostalCodes)]

		gender := genders[g.rng.Intn(len(genders))]
		if g.rng.Float64() < g.config.MissingRate {
			gender = ""
		}

		tracking := "No"
		if g.rng.Float64() < g.config.TrackingShare {
			tracking = "Yes"
		}

		rate := g.config.ClaimRate
		if r, ok := g.config.ProvinceRates[province]; ok {
			rate = r
		}
		premium := g.config.MeanPremium * (0.5 + g.rng.Float64())
		claims := 0.0
		if g.rng.Float64() < rate {
			claims = g.config.MeanClaim * (0.25 + 1.5*g.rng.Float64())
		}

		months := g.config.Months
		if months <= 0 {
			months = 1
		}
		month := g.config.StartMonth.AddDate(0, g.rng.Intn(months), 0)

		rows = append(rows, []string{
			strconv.Itoa(1000 + i),
			month.Format("2006-01-02 15:04:05"),
			province,
			postal,
			gender,
			vehicles[g.rng.Intn(len(vehicles))],
			makes[g.rng.Intn(len(makes))],
			covers[g.rng.Intn(len(covers))],
			tracking,
			"False",
			strconv.Itoa(g.rng.Intn(200000)),
			strconv.FormatFloat(premium, 'f', 6, 64),
			strconv.FormatFloat(claims, 'f', 6, 64),
		})
	}
	return rows
}

// WriteDelimited writes the header and generated rows to w
func (g *PolicyGenerator) WriteDelimited(w io.Writer, delimiter rune) error {
	return WriteDelimited(w, delimiter, PolicyHeaders, g.Rows())
}

// Table generates rows and coerces them with the given schema
func (g *PolicyGenerator) Table(schema policy.Schema) *policy.Table {
	return BuildTable(schema, PolicyHeaders, g.Rows())
}

// WriteDelimited writes a header and rows with the given separator
func WriteDelimited(w io.Writer, delimiter rune, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// DelimitedString renders a header and rows as pipe-delimited text
func DelimitedString(headers []string, rows [][]string) string {
	var sb strings.Builder
	if err := WriteDelimited(&sb, '|', headers, rows); err != nil {
		panic(err)
	}
	return sb.String()
}

// BuildTable coerces raw rows into a typed table, the way the loader does
func BuildTable(schema policy.Schema, headers []string, rows [][]string) *policy.Table {
	c := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	t := policy.NewTable(headers, schema)
	for i, row := range rows {
		rec := policy.Record{Row: i + 1, Values: make(map[string]policy.Value, len(headers))}
		for j, h := range headers {
			raw := ""
			if j < len(row) {
				raw = row[j]
			}
			rec.Values[h] = c.Coerce(raw, schema.TypeOf(h))
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

// Normal draws n values from N(mean, sd) with a seeded source
func Normal(seed int64, n int, mean, sd float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + sd*rng.NormFloat64()
	}
	return out
}

// GroupRows builds minimal feature/premium/claims rows for one group
func GroupRows(feature string, premiums, claims []float64) [][]string {
	rows := make([][]string, len(premiums))
	for i := range premiums {
		rows[i] = []string{
			feature,
			strconv.FormatFloat(premiums[i], 'g', -1, 64),
			strconv.FormatFloat(claims[i], 'g', -1, 64),
		}
	}
	return rows
}
