// Package pipeline turns an ordered list of declarative configuration
// sections into a composed chain of reader, filter and plotter modules and
// executes them sequentially over the shared canonical table.
package pipeline

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/suiviconso/suiviconso/internal/table"
)

type stage struct {
	section string
	kind    string
	role    Role
	module  Module
}

// Pipeline is a fully resolved, validated module chain ready to run.
type Pipeline struct {
	runID  string
	stages []stage
}

// Option adjusts pipeline construction.
type Option func(*buildConfig)

type buildConfig struct {
	plotterDefaults map[string]interface{}
}

// WithPlotterDefaults injects default option values into every plotter
// section that does not set them itself. The CLI uses this to pass the
// artifact directory and output format down without each section repeating
// them.
func WithPlotterDefaults(defaults map[string]interface{}) Option {
	return func(c *buildConfig) { c.plotterDefaults = defaults }
}

// New resolves every section against the registry and constructs all module
// instances up front, so configuration errors surface before any module
// runs. Sections of the same kind are legal and independent.
func New(reg *Registry, sections []Section, opts ...Option) (*Pipeline, error) {
	var cfg buildConfig
	for _, o := range opts {
		o(&cfg)
	}

	p := &Pipeline{runID: uuid.NewString()}
	for _, sec := range sections {
		kind, role, factory, err := reg.Resolve(sec.Name)
		if err != nil {
			return nil, err
		}

		raw := sec.Options
		if role == RolePlotter && len(cfg.plotterDefaults) > 0 {
			merged := make(map[string]interface{}, len(raw)+len(cfg.plotterDefaults))
			for k, v := range cfg.plotterDefaults {
				merged[k] = v
			}
			for k, v := range raw {
				merged[k] = v
			}
			raw = merged
		}

		module, err := factory(NewOptions(kind, raw))
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, stage{section: sec.Name, kind: kind, role: role, module: module})
	}
	return p, nil
}

// RunID identifies this pipeline instance in logs.
func (p *Pipeline) RunID() string { return p.runID }

// Stages returns the number of resolved stages.
func (p *Pipeline) Stages() int { return len(p.stages) }

// Run executes the stages strictly in declaration order, threading the
// canonical table through. Reader fragments merge into the running table via
// an outer join; filters replace it; plotters receive a clone and their
// failures are logged and skipped so later plotters still produce output.
func (p *Pipeline) Run() error {
	log.Printf("run %s: %d stages", p.runID, len(p.stages))

	data := table.New()
	for i, st := range p.stages {
		log.Printf("run %s: [%d/%d] %s %s", p.runID, i+1, len(p.stages), st.role, st.section)

		switch m := st.module.(type) {
		case Reader:
			frag, err := m.Read()
			if err != nil {
				return &StageError{Role: st.role, Kind: st.kind, Section: st.section, Err: err}
			}
			data, err = data.Merge(frag)
			if err != nil {
				return &StageError{Role: st.role, Kind: st.kind, Section: st.section, Err: err}
			}
			log.Printf("run %s: table now %d rows, %d columns", p.runID, data.Len(), len(data.Columns()))
		case Filter:
			next, err := m.Apply(data)
			if err != nil {
				return &StageError{Role: st.role, Kind: st.kind, Section: st.section, Err: err}
			}
			data = next
			log.Printf("run %s: table now %d rows, %d columns", p.runID, data.Len(), len(data.Columns()))
		case Plotter:
			if err := m.Render(data.Clone()); err != nil {
				log.Printf("run %s: plotter %s (section %q) failed, continuing: %v", p.runID, st.kind, st.section, err)
			}
		default:
			return &StageError{Role: st.role, Kind: st.kind, Section: st.section,
				Err: fmt.Errorf("module implements none of Reader, Filter or Plotter")}
		}
	}
	return nil
}
