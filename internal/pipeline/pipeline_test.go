package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/suiviconso/suiviconso/internal/table"
)

// fakeReader yields a fixed fragment.
type fakeReader struct {
	frag *table.Table
	err  error
}

func (r *fakeReader) Kind() string { return "fake_reader" }
func (r *fakeReader) Read() (*table.Table, error) {
	return r.frag, r.err
}

type fakeFilter struct {
	apply func(*table.Table) (*table.Table, error)
}

func (f *fakeFilter) Kind() string { return "fake_filter" }
func (f *fakeFilter) Apply(t *table.Table) (*table.Table, error) {
	return f.apply(t)
}

type fakePlotter struct {
	err    error
	called bool
	seen   *table.Table
}

func (p *fakePlotter) Kind() string { return "fake_plotter" }
func (p *fakePlotter) Render(t *table.Table) error {
	p.called = true
	p.seen = t
	return p.err
}

func fragment(t *testing.T, col string, n int) *table.Table {
	t.Helper()
	b := table.NewBuilder("test", table.DuplicateError)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if err := b.Set(start.Add(time.Duration(i)*time.Hour), col, float64(i)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return b.Table()
}

func TestLoadConfigPreservesSectionOrder(t *testing.T) {
	doc := `
csv_reader elec:
  file_path: elec.csv
basic_filter:
  resample: 1h
info_printer:
csv_reader gaz:
  file_path: gaz.csv
`
	sections, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := []string{"csv_reader elec", "basic_filter", "info_printer", "csv_reader gaz"}
	if len(sections) != len(want) {
		t.Fatalf("sections = %d, want %d", len(sections), len(want))
	}
	for i, name := range want {
		if sections[i].Name != name {
			t.Errorf("section %d = %q, want %q", i, sections[i].Name, name)
		}
	}
	if got := sections[0].Options["file_path"]; got != "elec.csv" {
		t.Errorf("first section file_path = %v", got)
	}
	if len(sections[2].Options) != 0 {
		t.Errorf("bare section should have no options, got %v", sections[2].Options)
	}
}

func TestLoadConfigRejectsNonMappingSection(t *testing.T) {
	if _, err := LoadConfig(strings.NewReader("csv_reader: [1, 2]\n")); err == nil {
		t.Fatal("want error for non-mapping section body")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register("csv_reader", RoleReader, nil)
	reg.Register("basic_filter", RoleFilter, nil)

	tests := []struct {
		section  string
		wantKind string
		wantErr  bool
	}{
		{"csv_reader", "csv_reader", false},
		{"csv_reader house2", "csv_reader", false},
		{"CSV_Reader elec", "csv_reader", false},
		{"basic_filter slice", "basic_filter", false},
		{"histogram", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			kind, _, _, err := reg.Resolve(tt.section)
			if tt.wantErr {
				var unknown *UnknownKindError
				if !errors.As(err, &unknown) {
					t.Fatalf("want UnknownKindError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

type countingReader struct {
	fakeReader
	reads *int
}

func (r *countingReader) Read() (*table.Table, error) {
	*r.reads++
	return r.fakeReader.Read()
}

func TestNewFailsBeforeAnyModuleRuns(t *testing.T) {
	reads := 0
	reg := NewRegistry()
	reg.Register("fake_reader", RoleReader, func(o *Options) (Module, error) {
		return &countingReader{fakeReader: fakeReader{frag: table.New()}, reads: &reads}, nil
	})
	reg.Register("bad_filter", RoleFilter, func(o *Options) (Module, error) {
		return nil, &InvalidOptionError{Kind: "bad_filter", Key: "freq", Reason: "required option missing"}
	})

	sections := []Section{
		{Name: "fake_reader", Options: map[string]interface{}{}},
		{Name: "bad_filter", Options: map[string]interface{}{}},
	}
	_, err := New(reg, sections)
	var invalid *InvalidOptionError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidOptionError, got %v", err)
	}
	if reads != 0 {
		t.Errorf("a module ran before construction finished")
	}
}

func TestRunThreadsTableThroughStages(t *testing.T) {
	reg := NewRegistry()
	plotter := &fakePlotter{}
	frag := fragment(t, "Electricity", 10)

	reg.Register("fake_reader", RoleReader, func(o *Options) (Module, error) {
		return &fakeReader{frag: frag}, nil
	})
	reg.Register("fake_filter", RoleFilter, func(o *Options) (Module, error) {
		return &fakeFilter{apply: func(tab *table.Table) (*table.Table, error) {
			lo := tab.Index()[2]
			return tab.Slice(&lo, nil), nil
		}}, nil
	})
	reg.Register("fake_plotter", RolePlotter, func(o *Options) (Module, error) {
		return plotter, nil
	})

	p, err := New(reg, []Section{
		{Name: "fake_reader"},
		{Name: "fake_filter"},
		{Name: "fake_plotter"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !plotter.called {
		t.Fatal("plotter never ran")
	}
	if plotter.seen.Len() != 8 {
		t.Errorf("plotter saw %d rows, want 8 after filter", plotter.seen.Len())
	}
}

func TestRunPlotterFailureIsNotFatal(t *testing.T) {
	reg := NewRegistry()
	failing := &fakePlotter{err: fmt.Errorf("render exploded")}
	second := &fakePlotter{}

	reg.Register("fake_reader", RoleReader, func(o *Options) (Module, error) {
		return &fakeReader{frag: fragment(t, "Electricity", 3)}, nil
	})
	registered := 0
	reg.Register("fake_plotter", RolePlotter, func(o *Options) (Module, error) {
		registered++
		if registered == 1 {
			return failing, nil
		}
		return second, nil
	})

	p, err := New(reg, []Section{
		{Name: "fake_reader"},
		{Name: "fake_plotter one"},
		{Name: "fake_plotter two"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("Run must succeed despite plotter failure, got %v", err)
	}
	if !second.called {
		t.Error("plotter after the failing one never ran")
	}
}

func TestRunReaderFailureIsFatal(t *testing.T) {
	reg := NewRegistry()
	after := &fakePlotter{}
	reg.Register("fake_reader", RoleReader, func(o *Options) (Module, error) {
		return &fakeReader{err: fmt.Errorf("source missing")}, nil
	})
	reg.Register("fake_plotter", RolePlotter, func(o *Options) (Module, error) {
		return after, nil
	})

	p, err := New(reg, []Section{{Name: "fake_reader"}, {Name: "fake_plotter"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.Run()
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("want StageError, got %v", err)
	}
	if stageErr.Role != RoleReader {
		t.Errorf("failed role = %s, want reader", stageErr.Role)
	}
	if after.called {
		t.Error("plotter ran after fatal reader failure")
	}
}

func TestRunMergeCollisionIsFatal(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake_reader", RoleReader, func(o *Options) (Module, error) {
		return &fakeReader{frag: fragment(t, "Electricity", 3)}, nil
	})
	p, err := New(reg, []Section{{Name: "fake_reader a"}, {Name: "fake_reader b"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = p.Run()
	var collision *table.ColumnCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("want ColumnCollisionError through StageError, got %v", err)
	}
}

func TestWithPlotterDefaults(t *testing.T) {
	reg := NewRegistry()
	var gotDir, gotFormat string
	reg.Register("fake_plotter", RolePlotter, func(o *Options) (Module, error) {
		var err error
		if gotDir, err = o.StringOr("output_dir", ""); err != nil {
			return nil, err
		}
		if gotFormat, err = o.StringOr("format", ""); err != nil {
			return nil, err
		}
		return &fakePlotter{}, nil
	})

	sections := []Section{{
		Name:    "fake_plotter",
		Options: map[string]interface{}{"format": "html"},
	}}
	_, err := New(reg, sections, WithPlotterDefaults(map[string]interface{}{
		"output_dir": "plots",
		"format":     "png",
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gotDir != "plots" {
		t.Errorf("output_dir = %q, want injected default", gotDir)
	}
	if gotFormat != "html" {
		t.Errorf("format = %q, section value must win over default", gotFormat)
	}
}

func TestOptionsSchema(t *testing.T) {
	t.Run("unknown key rejected", func(t *testing.T) {
		o := NewOptions("csv_reader", map[string]interface{}{"file_path": "a.csv", "fil_path": "typo"})
		if _, err := o.String("file_path"); err != nil {
			t.Fatalf("String: %v", err)
		}
		err := o.Finish()
		var invalid *InvalidOptionError
		if !errors.As(err, &invalid) {
			t.Fatalf("want InvalidOptionError, got %v", err)
		}
		if invalid.Key != "fil_path" {
			t.Errorf("flagged key = %q", invalid.Key)
		}
	})

	t.Run("required missing", func(t *testing.T) {
		o := NewOptions("csv_reader", nil)
		_, err := o.String("file_path")
		var invalid *InvalidOptionError
		if !errors.As(err, &invalid) {
			t.Fatalf("want InvalidOptionError, got %v", err)
		}
	})

	t.Run("enum", func(t *testing.T) {
		o := NewOptions("p", map[string]interface{}{"format": "svg"})
		if _, err := o.Enum("format", "png", "png", "html"); err == nil {
			t.Fatal("want error for out-of-range enum")
		}
	})

	t.Run("date layouts", func(t *testing.T) {
		o := NewOptions("f", map[string]interface{}{
			"start_date": "2023-01-02",
			"end_date":   "2023-01-05 12:30",
		})
		start, err := o.Date("start_date", time.UTC)
		if err != nil || start == nil {
			t.Fatalf("Date start: %v %v", start, err)
		}
		end, err := o.Date("end_date", time.UTC)
		if err != nil || end == nil {
			t.Fatalf("Date end: %v %v", end, err)
		}
		if !end.After(*start) {
			t.Errorf("parsed dates out of order: %v %v", start, end)
		}
	})

	t.Run("string or list", func(t *testing.T) {
		o := NewOptions("p", map[string]interface{}{"variables": []interface{}{"a", "b"}})
		got, err := o.StringList("variables")
		if err != nil || len(got) != 2 {
			t.Fatalf("StringList = %v, %v", got, err)
		}
		o2 := NewOptions("p", map[string]interface{}{"variables": "solo"})
		got2, err := o2.StringList("variables")
		if err != nil || len(got2) != 1 || got2[0] != "solo" {
			t.Fatalf("StringList scalar = %v, %v", got2, err)
		}
	})
}
