package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGauges(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usgs_gauges.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGauges_Valid(t *testing.T) {
	path := writeGauges(t, `
- id: "09380000"
  friendly_name: Lees Ferry
  name: Colorado River at Lees Ferry, AZ
- id: "01646500"
`)
	gauges, err := LoadGauges(path)
	if err != nil {
		t.Fatalf("LoadGauges() error = %v", err)
	}
	if len(gauges) != 2 {
		t.Fatalf("got %d gauges, want 2", len(gauges))
	}
	if gauges[0].ID != "09380000" {
		t.Errorf("id = %q", gauges[0].ID)
	}
	if gauges[0].FriendlyName != "Lees Ferry" {
		t.Errorf("friendly_name = %q", gauges[0].FriendlyName)
	}
	if gauges[0].Name != "Colorado River at Lees Ferry, AZ" {
		t.Errorf("name = %q", gauges[0].Name)
	}
	if gauges[1].FriendlyName != "" || gauges[1].Name != "" {
		t.Errorf("optional fields should stay empty, got %+v", gauges[1])
	}
}

func TestLoadGauges_MissingIDRejectsWholeList(t *testing.T) {
	path := writeGauges(t, `
- id: "09380000"
- friendly_name: no id here
`)
	if _, err := LoadGauges(path); err == nil {
		t.Error("a single malformed entry must reject the whole list")
	}
}

func TestLoadGauges_NotAList(t *testing.T) {
	path := writeGauges(t, `gauges: {id: "09380000"}`)
	if _, err := LoadGauges(path); err == nil {
		t.Error("a mapping at the top level must be rejected")
	}
}

func TestLoadGauges_WrongEntryShape(t *testing.T) {
	path := writeGauges(t, `
- "09380000"
- "01646500"
`)
	if _, err := LoadGauges(path); err == nil {
		t.Error("scalar entries must be rejected")
	}
}

func TestLoadGauges_MissingFile(t *testing.T) {
	if _, err := LoadGauges(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must be an error")
	}
}

func TestLoadGauges_EmptyFile(t *testing.T) {
	gauges, err := LoadGauges(writeGauges(t, ""))
	if err != nil {
		t.Fatalf("LoadGauges() error = %v", err)
	}
	if len(gauges) != 0 {
		t.Errorf("got %d gauges, want 0", len(gauges))
	}
}
