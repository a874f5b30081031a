package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/thinx/internal/store"
)

func sampleEntries() []store.Entry {
	return []store.Entry{
		{Role: store.RoleUser, Content: "hello\nthere", Timestamp: "2024-01-02T03:04:05.000000", Source: store.SourceWeb},
		{Role: store.RoleAssistant, Content: strings.Repeat("é", 80), Timestamp: "2024-01-02T03:04:06.000000", Source: store.SourceWeb},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{name: "table format", format: OutputFormatTable},
		{name: "json format", format: OutputFormatJSON},
		{name: "yaml format", format: OutputFormatYAML},
		{name: "invalid format", format: OutputFormat("xml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && f == nil {
				t.Error("New() returned nil formatter for valid format")
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "TABLE", want: OutputFormatTable},
		{input: "json", want: OutputFormatJSON},
		{input: " Yaml ", want: OutputFormatYAML},
		{input: "csv", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTableFormatter(t *testing.T) {
	f := NewTableFormatter()

	empty, err := f.FormatEntries(nil)
	if err != nil || empty != "No history found" {
		t.Errorf("FormatEntries(nil) = %q, %v", empty, err)
	}

	out, err := f.FormatEntries(sampleEntries())
	if err != nil {
		t.Fatalf("FormatEntries() error = %v", err)
	}
	for _, want := range []string{"Role", "user", "assistant", "hello there", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	ids, err := f.FormatIdentities([]store.IdentityMeta{{Identity: "web_user", Entries: 4, UpdatedAt: time.Now()}})
	if err != nil {
		t.Fatalf("FormatIdentities() error = %v", err)
	}
	if !strings.Contains(ids, "web_user") || !strings.Contains(ids, "4") {
		t.Errorf("identity table missing fields:\n%s", ids)
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := JSONFormatter{}.FormatEntries(nil)
	if err != nil || out != "[]" {
		t.Errorf("FormatEntries(nil) = %q, %v", out, err)
	}

	out, err = JSONFormatter{}.FormatEntries(sampleEntries())
	if err != nil {
		t.Fatalf("FormatEntries() error = %v", err)
	}
	var decoded []store.Entry
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Content != "hello\nthere" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestYAMLFormatter(t *testing.T) {
	out, err := YAMLFormatter{}.FormatEntries(sampleEntries()[:1])
	if err != nil {
		t.Fatalf("FormatEntries() error = %v", err)
	}
	if !strings.Contains(out, "role: user") || !strings.Contains(out, "source: web") {
		t.Errorf("unexpected yaml:\n%s", out)
	}

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	out, err = YAMLFormatter{}.FormatIdentities([]store.IdentityMeta{{Identity: "web_user", Entries: 2, CreatedAt: when, UpdatedAt: when}})
	if err != nil {
		t.Fatalf("FormatIdentities() error = %v", err)
	}
	if !strings.Contains(out, "identity: web_user") || !strings.Contains(out, "2024-05-06T07:08:09.000000") {
		t.Errorf("unexpected yaml:\n%s", out)
	}
}
