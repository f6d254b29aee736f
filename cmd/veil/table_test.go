package main

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]tableColumn{col("Media"), numCol("Segments")},
		[][]string{{"movie-1", "3"}, {"movie-2", "12"}},
	)
	for _, want := range []string{"Media", "Segments", "movie-1", "movie-2", "12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableRaggedRow(t *testing.T) {
	out := renderTable(
		[]tableColumn{col("Session"), col("State"), numCol("Position")},
		[][]string{{"s1"}},
	)
	if !strings.Contains(out, "s1") {
		t.Fatalf("rendered table missing short row:\n%s", out)
	}
}

func TestRenderTableNoColumns(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
