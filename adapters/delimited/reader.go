package delimited

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"claimstat/adapters/coercer"
	"claimstat/domain/core"
	"claimstat/domain/policy"
	"claimstat/internal/errors"
	"claimstat/internal/logging"
)

// DefaultDelimiter is the separator of the policy extracts
const DefaultDelimiter = '|'

// Options configures a Reader
type Options struct {
	Delimiter rune
	Schema    policy.Schema
	// Required lists columns the header must carry.
	Required []string
	Coercion coercer.CoercionConfig
	Logger   *zap.Logger
}

// LoadStats describes one read
type LoadStats struct {
	Rows int `json:"rows"`
	// CoercionFailures counts non-empty cells that became missing, per column.
	CoercionFailures map[string]int `json:"coercion_failures"`
	Duration         time.Duration  `json:"duration"`
}

// Reader loads delimited policy files into typed tables
type Reader struct {
	opts    Options
	coercer *coercer.TypeCoercer
	logger  *zap.Logger
}

// NewReader creates a reader; zero options mean pipe delimiter and the default schema
func NewReader(opts Options) *Reader {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.Schema.Columns == nil {
		opts.Schema = policy.DefaultSchema()
	}
	return &Reader{
		opts:    opts,
		coercer: coercer.NewTypeCoercer(opts.Coercion),
		logger:  logging.OrNop(opts.Logger),
	}
}

// ParseDelimiter turns a flag value such as "|" or "\t" into a rune
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// Read loads a file from disk
func (r *Reader) Read(path string) (*policy.Table, *LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil, errors.NotFound(fmt.Sprintf("data file %s", path))
		}
		return nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	r.logger.Info("reading policy file", zap.String("path", path), zap.String("delimiter", string(r.opts.Delimiter)))
	return r.ReadFrom(f)
}

// ReadFrom loads a delimited stream. Rows are never dropped here; cells
// that fail coercion are missing.
func (r *Reader) ReadFrom(in io.Reader) (*policy.Table, *LoadStats, error) {
	start := time.Now()

	cr := csv.NewReader(in)
	cr.Comma = r.opts.Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.InvalidInput("file has no header row", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, nil, errors.InvalidInput("failed to read header", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := policy.NewTable(headers, r.opts.Schema)
	for _, col := range r.opts.Required {
		if _, err := table.Column(col); err != nil {
			return nil, nil, errors.InvalidInput("missing required column", err)
		}
	}

	types := make([]policy.ColumnType, len(headers))
	for i, h := range headers {
		types[i] = r.opts.Schema.TypeOf(h)
	}

	stats := &LoadStats{CoercionFailures: map[string]int{}}
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.InvalidInput(fmt.Sprintf("failed to read row %d", stats.Rows+1), err)
		}
		stats.Rows++

		rec := policy.Record{Row: stats.Rows, Values: make(map[string]policy.Value, len(headers))}
		for i, h := range headers {
			if i >= len(fields) {
				rec.Values[h] = policy.NewMissingValue()
				continue
			}
			v := r.coercer.Coerce(fields[i], types[i])
			if v.IsMissing() && strings.TrimSpace(fields[i]) != "" {
				stats.CoercionFailures[h]++
			}
			rec.Values[h] = v
		}
		table.Records = append(table.Records, rec)
	}
	stats.Duration = time.Since(start)

	r.logger.Info("policy file loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("columns", len(headers)),
		zap.Duration("duration", stats.Duration))
	for col, n := range stats.CoercionFailures {
		r.logger.Debug("cells coerced to missing",
			zap.String("column", col),
			zap.String("type", string(r.opts.Schema.TypeOf(col))),
			zap.Int("count", n))
	}

	return table, stats, nil
}

// RequireColumns checks that a loaded table carries every named column
func RequireColumns(t *policy.Table, columns ...string) error {
	for _, col := range columns {
		if _, err := t.Column(col); err != nil {
			return errors.InvalidInput("missing required column", core.NewColumnError(col))
		}
	}
	return nil
}
