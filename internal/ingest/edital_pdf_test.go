package ingest

import (
	"testing"
	"time"
)

func TestIsPDF(t *testing.T) {
	if !IsPDF("application/pdf", nil) {
		t.Error("content type should be enough")
	}
	if !IsPDF("application/octet-stream", []byte("%PDF-1.7\n...")) {
		t.Error("magic bytes should be enough")
	}
	if IsPDF("text/html", []byte("<html>")) {
		t.Error("html is not a pdf")
	}
}

func TestParseBRLAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1.234.567,89", 1234567.89},
		{"350.000,00", 350000.00},
		{"99,90", 99.90},
	}

	for _, tt := range tests {
		got, err := parseBRLAmount(tt.raw)
		if err != nil {
			t.Errorf("parseBRLAmount(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBRLAmount(%q) = %f, want %f", tt.raw, got, tt.want)
		}
	}
}

func TestParseBRDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"25/03/2024", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)},
		{"12 de março de 2024", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"1 de janeiro de 2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseBRDate(tt.raw)
		if err != nil {
			t.Errorf("parseBRDate(%q): %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseBRDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := parseBRDate("amanhã"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestFindEstimatedValue_PrefersLabeled(t *testing.T) {
	text := "A garantia será de R$ 900.000,00. Valor estimado da contratação: R$ 350.000,00 conforme anexo."

	got := findEstimatedValue(text)
	if got == nil {
		t.Fatal("expected a value")
	}
	if *got != 350000.00 {
		t.Errorf("labeled amount should win over the larger unlabeled one, got %f", *got)
	}
}

func TestFindEstimatedValue_FallsBackToLargest(t *testing.T) {
	text := "Itens: R$ 1.000,00 e R$ 25.000,00 e R$ 3.500,00."

	got := findEstimatedValue(text)
	if got == nil || *got != 25000.00 {
		t.Errorf("expected largest amount fallback, got %v", got)
	}
}

func TestFindOpeningDate_PrefersLabeled(t *testing.T) {
	text := "Publicado em 01/02/2024. Data de abertura das propostas: 25/03/2024 às 10h."

	got := findOpeningDate(text)
	if got == nil {
		t.Fatal("expected a date")
	}
	want := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
