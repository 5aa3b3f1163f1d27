package export

import (
	"strings"
	"testing"
)

func TestCSVRenderPositionalRows(t *testing.T) {
	data := Dataset{
		Headers: []string{"Member", "Standing"},
		Rows: [][]string{
			{"Fry", "-1.50"},
			{"Leela", "0.00"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	want := "Member,Standing\nFry,-1.50\nLeela,0.00\n"
	if got != want {
		t.Fatalf("csv output = %q, want %q", got, want)
	}
}

func TestCSVRenderRejectsRaggedRow(t *testing.T) {
	data := Dataset{
		Headers: []string{"Member", "Standing"},
		Rows:    [][]string{{"Fry"}},
	}
	if _, err := NewCSVExporter().Render(data); err == nil {
		t.Fatal("expected error for row shorter than headers")
	}
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	if _, err := NewCSVExporter().Render(Dataset{}); err == nil {
		t.Fatal("expected error for empty headers")
	}
}

func TestPDFRenderPositionalRows(t *testing.T) {
	data := Dataset{
		Headers: []string{"Member", "Pool", "Standing"},
		Rows: [][]string{
			{"Fry", "Regular Workshift", "-1.50"},
		},
	}
	out, err := NewPDFExporter().Render(data, "Workshift Standings")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(out), "%PDF") {
		t.Fatalf("output is not a pdf document")
	}
}
