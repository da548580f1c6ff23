// Package validation runs data-driven relevance checks against a notes
// corpus through the MCP tool surface.
//
// Cases live in YAML so a corpus owner can record the meetings they care
// about and re-run them after changing weights or thresholds, without
// rebuilding the binary.
package validation

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/meetprep/internal/config"
	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/engine"
	"github.com/Aman-CERP/meetprep/internal/mcp"
)

// DefaultWithin is the rank an expected document must reach when a case
// does not set one.
const DefaultWithin = 3

// Case is one meeting with the documents it should, or should not, surface.
type Case struct {
	ID       string                  `yaml:"id" json:"id"`
	Name     string                  `yaml:"name" json:"name"`
	Meeting  mcp.MeetingContextInput `yaml:"meeting" json:"meeting"`
	Expected []string                `yaml:"expected,omitempty" json:"expected,omitempty"`
	Absent   []string                `yaml:"absent,omitempty" json:"absent,omitempty"`
	Within   int                     `yaml:"within,omitempty" json:"within,omitempty"`
	Notes    string                  `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Suite holds every case of a queries file.
type Suite struct {
	Relevance []Case `yaml:"relevance"`
	Negative  []Case `yaml:"negative"`
}

// LoadSuite reads a queries file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse queries file %s: %w", path, err)
	}
	for _, c := range append(slices.Clone(s.Relevance), s.Negative...) {
		if c.ID == "" {
			return nil, fmt.Errorf("queries file %s: case without id", path)
		}
	}
	return &s, nil
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case     Case          `json:"case"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration_ns"`
	Results  []string      `json:"results"`

	// Ranks maps each expected document to its 1-based rank, 0 when missing.
	Ranks map[string]int `json:"ranks,omitempty"`

	// Unwanted lists absent documents that were returned anyway.
	Unwanted []string `json:"unwanted,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Report summarizes a full run.
type Report struct {
	Timestamp     time.Time    `json:"timestamp"`
	Root          string       `json:"root"`
	Documents     int          `json:"documents"`
	VersionSeq    uint64       `json:"version_seq"`
	Relevance     []CaseResult `json:"relevance"`
	Negative      []CaseResult `json:"negative"`
	RelevancePass int          `json:"relevance_pass"`
	NegativePass  int          `json:"negative_pass"`
}

// Passed reports whether every case passed.
func (r *Report) Passed() bool {
	return r.RelevancePass == len(r.Relevance) && r.NegativePass == len(r.Negative)
}

// Validator answers cases with a fully built index.
type Validator struct {
	root    string
	manager *engine.Manager
	server  *mcp.Server
}

// NewValidator indexes root with cfg and waits for the first version. A nil
// cfg uses the built-in defaults so results do not depend on user config.
func NewValidator(ctx context.Context, root string, cfg *config.Config) (*Validator, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	src, err := corpus.NewDirSource(root, cfg.DirOptions())
	if err != nil {
		return nil, err
	}

	ec := cfg.EngineConfig()
	ec.Watch = false
	m := engine.New(src, ec)
	m.Start(ctx)
	if err := m.WaitReady(ctx); err != nil {
		m.Stop()
		return nil, err
	}

	srv, err := mcp.NewServer(m, src.Root())
	if err != nil {
		m.Stop()
		return nil, err
	}
	return &Validator{root: src.Root(), manager: m, server: srv}, nil
}

// Close stops the index.
func (v *Validator) Close() {
	v.manager.Stop()
}

// Run answers a single case. Negative cases pass as long as no absent
// document is returned; an error fails any case.
func (v *Validator) Run(ctx context.Context, c Case) CaseResult {
	start := time.Now()
	res := CaseResult{Case: c, Results: []string{}}

	out, err := v.server.MeetingContext(ctx, c.Meeting)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if out.IndexNotReady {
		res.Error = "index not ready"
		return res
	}
	for _, m := range out.Matches {
		res.Results = append(res.Results, m.DocumentID)
	}

	within := c.Within
	if within <= 0 {
		within = DefaultWithin
	}
	res.Passed = true
	if len(c.Expected) > 0 {
		res.Ranks = make(map[string]int, len(c.Expected))
		for _, id := range c.Expected {
			rank := slices.Index(res.Results, id) + 1
			res.Ranks[id] = rank
			if rank == 0 || rank > within {
				res.Passed = false
			}
		}
	}
	for _, id := range c.Absent {
		if slices.Contains(res.Results, id) {
			res.Unwanted = append(res.Unwanted, id)
			res.Passed = false
		}
	}
	return res
}

// RunSuite answers every case of s.
func (v *Validator) RunSuite(ctx context.Context, s *Suite) *Report {
	status := v.manager.Status()
	r := &Report{
		Timestamp:  time.Now(),
		Root:       v.root,
		Documents:  status.DocumentCount,
		VersionSeq: status.VersionSeq,
		Relevance:  []CaseResult{},
		Negative:   []CaseResult{},
	}
	for _, c := range s.Relevance {
		cr := v.Run(ctx, c)
		r.Relevance = append(r.Relevance, cr)
		if cr.Passed {
			r.RelevancePass++
		}
	}
	for _, c := range s.Negative {
		cr := v.Run(ctx, c)
		r.Negative = append(r.Negative, cr)
		if cr.Passed {
			r.NegativePass++
		}
	}
	return r
}
