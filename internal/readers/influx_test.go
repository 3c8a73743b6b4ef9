package readers

import (
	"errors"
	"testing"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

func buildInfluxReader(t *testing.T, opts map[string]interface{}) pipeline.Reader {
	t.Helper()
	m, err := newInfluxLPReader(pipeline.NewOptions("influxdb_lp_reader", opts))
	if err != nil {
		t.Fatalf("newInfluxLPReader: %v", err)
	}
	return m.(pipeline.Reader)
}

func TestInfluxLPReaderBasic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.lp",
		"# DML\n"+
			"energy power=1.5 1672531200000000000\n"+
			"energy power=2.5 1672534800000000000\n"+
			"energy power=3.5,voltage=231.2 1672538400000000000\n")

	r := buildInfluxReader(t, map[string]interface{}{"file_path": path})
	frag, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frag.Len() != 3 {
		t.Fatalf("rows = %d, want 3", frag.Len())
	}
	if frag.Column("power") == nil || frag.Column("voltage") == nil {
		t.Fatalf("columns = %v", frag.ColumnNames())
	}
	if !table.IsMissing(frag.Column("voltage").Values[0]) {
		t.Error("voltage absent from early records should be missing")
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !frag.Index()[0].Equal(want) {
		t.Errorf("first timestamp = %v, want %v", frag.Index()[0], want)
	}
}

func TestInfluxLPReaderTagProjection(t *testing.T) {
	dir := t.TempDir()
	content := "energy,room=kitchen power=1 1672531200000000000\n" +
		"energy,room=office power=2 1672531200000000000\n"

	t.Run("project", func(t *testing.T) {
		path := writeFile(t, dir, "project.lp", content)
		r := buildInfluxReader(t, map[string]interface{}{"file_path": path})
		frag, err := r.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if frag.Column("power,room=kitchen") == nil || frag.Column("power,room=office") == nil {
			t.Errorf("projected columns missing: %v", frag.ColumnNames())
		}
		if frag.Len() != 1 {
			t.Errorf("rows = %d, want 1 (same instant)", frag.Len())
		}
	})

	t.Run("drop", func(t *testing.T) {
		path := writeFile(t, dir, "drop.lp", content)
		r := buildInfluxReader(t, map[string]interface{}{"file_path": path, "tags": "drop"})
		frag, err := r.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		// Both rooms collapse onto one column; later line wins.
		if got := frag.ColumnNames(); len(got) != 1 || got[0] != "power" {
			t.Fatalf("columns = %v", got)
		}
		if frag.Column("power").Values[0] != 2 {
			t.Errorf("value = %f, want the later write", frag.Column("power").Values[0])
		}
	})
}

func TestInfluxLPReaderMissingTimestamp(t *testing.T) {
	dir := t.TempDir()
	content := "energy power=1 1672531200000000000\n" +
		"energy power=2\n" +
		"energy power=3\n"

	t.Run("with resolution", func(t *testing.T) {
		path := writeFile(t, dir, "res.lp", content)
		r := buildInfluxReader(t, map[string]interface{}{
			"file_path":          path,
			"default_resolution": "1m",
		})
		frag, err := r.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if frag.Len() != 3 {
			t.Fatalf("rows = %d, want 3", frag.Len())
		}
		base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		if !frag.Index()[1].Equal(base.Add(time.Minute)) || !frag.Index()[2].Equal(base.Add(2*time.Minute)) {
			t.Errorf("inherited timestamps = %v", frag.Index())
		}
	})

	t.Run("without resolution", func(t *testing.T) {
		path := writeFile(t, dir, "nores.lp", content)
		r := buildInfluxReader(t, map[string]interface{}{"file_path": path})
		if _, err := r.Read(); err == nil {
			t.Fatal("want error for timestamp-less record with no default_resolution")
		}
	})
}

func TestInfluxLPReaderMeasurementFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.lp",
		"energy power=1 1672531200000000000\n"+
			"climate temp=19.5 1672531200000000000\n"+
			"energy power=2 1672534800000000000\n")

	r := buildInfluxReader(t, map[string]interface{}{"file_path": path, "measurement": "energy"})
	frag, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frag.Column("temp") != nil {
		t.Error("filtered measurement leaked through")
	}
	if frag.NonMissingCount("power") != 2 {
		t.Errorf("power count = %d, want 2", frag.NonMissingCount("power"))
	}
}

func TestInfluxLPReaderValueForms(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forms.lp",
		"m count=42i,ok=true,label=\"attic\",load=0.25 1672531200000000000\n")

	r := buildInfluxReader(t, map[string]interface{}{"file_path": path})
	frag, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v := frag.Column("count").Values[0]; v != 42 {
		t.Errorf("count = %f", v)
	}
	if v := frag.Column("ok").Values[0]; v != 1 {
		t.Errorf("ok = %f", v)
	}
	if v := frag.Column("load").Values[0]; v != 0.25 {
		t.Errorf("load = %f", v)
	}
	if frag.Column("label") != nil {
		t.Error("string field should be skipped, not stored")
	}
}

func TestInfluxLPReaderEscapes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "esc.lp",
		`pool\ pump,loc=back\ yard flow\ rate=3.5 1672531200000000000`+"\n")

	r := buildInfluxReader(t, map[string]interface{}{"file_path": path, "tags": "drop"})
	frag, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frag.Column("flow rate") == nil {
		t.Errorf("escaped field name mishandled: %v", frag.ColumnNames())
	}
}

func TestInfluxLPReaderMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.lp", "justonesection\n")

	r := buildInfluxReader(t, map[string]interface{}{"file_path": path})
	if _, err := r.Read(); err == nil {
		t.Fatal("want error for malformed record")
	}
}

func TestInfluxLPReaderConstructionValidation(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "ok.lp", "energy power=1 1672531200000000000\n")

	tests := []struct {
		name string
		opts map[string]interface{}
	}{
		{"missing file_path", map[string]interface{}{}},
		{"bad tags mode", map[string]interface{}{"file_path": existing, "tags": "explode"}},
		{"bad default_resolution", map[string]interface{}{"file_path": existing, "default_resolution": "soon"}},
		{"unknown unit", map[string]interface{}{
			"file_path": existing,
			"units":     map[interface{}]interface{}{"power": "furlongs"},
		}},
		{"unknown option", map[string]interface{}{"file_path": existing, "file_paht": "typo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newInfluxLPReader(pipeline.NewOptions("influxdb_lp_reader", tt.opts))
			var invalid *pipeline.InvalidOptionError
			if !errors.As(err, &invalid) {
				t.Fatalf("want InvalidOptionError, got %v", err)
			}
		})
	}
}

func TestInfluxLPReaderUnits(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "u.lp", "energy power=1 1672531200000000000\n")

	r := buildInfluxReader(t, map[string]interface{}{
		"file_path": path,
		"units":     map[interface{}]interface{}{"power": "kWh"},
	})
	frag, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if frag.Column("power").Unit != "kWh" {
		t.Errorf("unit = %q", frag.Column("power").Unit)
	}
}
