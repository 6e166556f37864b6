package app

import (
	"io"

	"go.uber.org/zap"

	"claimstat/adapters/delimited"
	"claimstat/domain/policy"
	"claimstat/internal/logging"
	"claimstat/internal/metrics"
)

// Dataset is a loaded and derived policy table with its load and clean reports
type Dataset struct {
	Raw     *policy.Table        `json:"-"`
	Table   *policy.Table        `json:"-"`
	Load    *delimited.LoadStats `json:"load"`
	Cleaned metrics.CleanReport  `json:"cleaned"`
}

// Pipeline loads a delimited policy file and derives claim metrics
type Pipeline struct {
	reader  *delimited.Reader
	deriver *metrics.Deriver
	logger  *zap.Logger
}

// NewPipeline wires a reader and deriver
func NewPipeline(reader *delimited.Reader, deriver *metrics.Deriver, logger *zap.Logger) *Pipeline {
	return &Pipeline{reader: reader, deriver: deriver, logger: logging.OrNop(logger)}
}

// Load reads path and derives metrics. required names feature columns
// whose missing values drop a record, on top of premium and claims.
func (p *Pipeline) Load(path string, required ...string) (*Dataset, error) {
	raw, stats, err := p.reader.Read(path)
	if err != nil {
		return nil, err
	}
	return p.derive(raw, stats, required)
}

// LoadFrom is Load over an already open reader
func (p *Pipeline) LoadFrom(r io.Reader, required ...string) (*Dataset, error) {
	raw, stats, err := p.reader.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return p.derive(raw, stats, required)
}

func (p *Pipeline) derive(raw *policy.Table, stats *delimited.LoadStats, required []string) (*Dataset, error) {
	derived, report, err := p.deriver.Derive(raw, required...)
	if err != nil {
		return nil, err
	}
	p.logger.Info("dataset ready",
		zap.Int("rows", stats.Rows),
		zap.Int("kept", report.Kept),
		zap.Int("dropped", report.Dropped))
	return &Dataset{Raw: raw, Table: derived, Load: stats, Cleaned: report}, nil
}
