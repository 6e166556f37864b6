package delimited

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimstat/domain/core"
	"claimstat/domain/policy"
	apperrors "claimstat/internal/errors"
	"claimstat/internal/testkit"
)

const sample = `UnderwrittenCoverID|TransactionMonth|Gender|Province|PostalCode|CrossBorder|CapitalOutstanding|TotalPremium|TotalClaims
145249|2015-03-01 00:00:00|Not specified|Gauteng|1459|False|119300|21.929824561403|0
145249|2015-05-01 00:00:00|Male|Gauteng|1459|1|119,300|0|0
145255|bad-date||KwaZulu-Natal|4093|maybe|x|n/a|512.8
145256|2015-07-01 00:00:00|Female
`

func TestReadFrom_CoercesDeclaredTypes(t *testing.T) {
	r := NewReader(Options{})
	tbl, stats, err := r.ReadFrom(strings.NewReader(sample))
	require.NoError(t, err)

	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, 4, stats.Rows)

	first := tbl.Records[0]
	premium, ok := first.Get(policy.ColTotalPremium).Float64()
	require.True(t, ok)
	assert.InDelta(t, 21.929824561403, premium, 1e-12)
	cb, ok := first.Get(policy.ColCrossBorder).Bool()
	require.True(t, ok)
	assert.False(t, cb)
	assert.Equal(t, "Not specified", first.Get(policy.ColGender).String())

	second := tbl.Records[1]
	cb, ok = second.Get(policy.ColCrossBorder).Bool()
	require.True(t, ok)
	assert.True(t, cb)
	assert.True(t, second.Get(policy.ColCapitalOutstanding).IsMissing())

	third := tbl.Records[2]
	assert.True(t, third.Get(policy.ColTransactionMonth).IsMissing())
	assert.True(t, third.Get(policy.ColGender).IsMissing())
	assert.True(t, third.Get(policy.ColCrossBorder).IsMissing())
	assert.True(t, third.Get(policy.ColTotalPremium).IsMissing())
	claims, ok := third.Get(policy.ColTotalClaims).Float64()
	require.True(t, ok)
	assert.Equal(t, 512.8, claims)

	// Short rows are padded, never dropped.
	fourth := tbl.Records[3]
	assert.Equal(t, 4, fourth.Row)
	assert.True(t, fourth.Get(policy.ColTotalPremium).IsMissing())

	assert.Equal(t, 1, stats.CoercionFailures[policy.ColTransactionMonth])
	assert.Equal(t, 2, stats.CoercionFailures[policy.ColCapitalOutstanding])
	assert.Equal(t, 1, stats.CoercionFailures[policy.ColTotalPremium])
	assert.Equal(t, 1, stats.CoercionFailures[policy.ColCrossBorder])
	assert.Zero(t, stats.CoercionFailures[policy.ColGender])
}

func TestReadFrom_RequiredColumns(t *testing.T) {
	r := NewReader(Options{Required: []string{policy.ColTotalPremium, policy.ColVehicleType}})
	_, _, err := r.ReadFrom(strings.NewReader(sample))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownColumn))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestReadFrom_AliasSatisfiesRequirement(t *testing.T) {
	r := NewReader(Options{Required: []string{policy.ColZipCode}})
	tbl, _, err := r.ReadFrom(strings.NewReader(sample))
	require.NoError(t, err)
	assert.NoError(t, RequireColumns(tbl, policy.ColZipCode, policy.ColGender))
	assert.Error(t, RequireColumns(tbl, policy.ColVehicleType))
}

func TestReadFrom_EmptyInput(t *testing.T) {
	_, _, err := NewReader(Options{}).ReadFrom(strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestRead_MatchesGeneratedTable(t *testing.T) {
	cfg := testkit.DefaultPolicyConfig()
	cfg.Policies = 40
	gen := testkit.NewPolicyGenerator(cfg)

	path := filepath.Join(t.TempDir(), "policies.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gen.WriteDelimited(f, '|'))
	require.NoError(t, f.Close())

	tbl, _, err := NewReader(Options{}).Read(path)
	require.NoError(t, err)

	want := testkit.NewPolicyGenerator(cfg).Table(policy.DefaultSchema())
	require.Equal(t, want.Len(), tbl.Len())
	for i := range want.Records {
		for _, h := range testkit.PolicyHeaders {
			assert.True(t, want.Records[i].Get(h).Equal(tbl.Records[i].Get(h)), "row %d column %s", i, h)
		}
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, _, err := NewReader(Options{}).Read(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestParseDelimiter(t *testing.T) {
	d, err := ParseDelimiter("")
	require.NoError(t, err)
	assert.Equal(t, '|', d)

	d, err = ParseDelimiter(`\t`)
	require.NoError(t, err)
	assert.Equal(t, '\t', d)

	d, err = ParseDelimiter(";")
	require.NoError(t, err)
	assert.Equal(t, ';', d)

	_, err = ParseDelimiter("||")
	assert.Error(t, err)
}
