package diag

import (
	"strings"
	"testing"
)

func TestReporterOrdering(t *testing.T) {
	r := NewReporter()
	r.Errorf(Pos{File: "b.lum", Off: 10, Line: 2, Col: 1}, ParseError, "second")
	r.Warnf(Pos{File: "a.lum", Off: 50, Line: 5, Col: 3}, AmbiguousContext, "first file")
	r.Errorf(Pos{File: "b.lum", Off: 2, Line: 1, Col: 3}, HTMLParseError, "first")

	ds := r.Diagnostics()
	if len(ds) != 3 {
		t.Fatalf("want 3 diagnostics, got %d", len(ds))
	}
	if ds[0].Pos.File != "a.lum" {
		t.Fatalf("order: %v", ds)
	}
	if ds[1].Message != "first" || ds[2].Message != "second" {
		t.Fatalf("offset order: %v", ds)
	}
}

func TestFailedIgnoresWarnings(t *testing.T) {
	r := NewReporter()
	r.Warnf(Pos{}, AmbiguousContext, "just a warning")
	if r.Failed() {
		t.Fatal("warnings must not fail the run")
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	r.Errorf(Pos{}, KindMismatch, "fatal")
	if !r.Failed() {
		t.Fatal("errors must fail the run")
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "KIND_MISMATCH") {
		t.Fatalf("Err = %v", err)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{
		Severity: Error,
		Code:     AmbiguousContext,
		Message:  "branches diverge",
		Pos:      Pos{File: "x.lum", Line: 3, Col: 7},
	}
	want := "x.lum:3:7: error: AMBIGUOUS_CONTEXT: branches diverge"
	if got := d.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestReporterConcurrent(t *testing.T) {
	r := NewReporter()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				r.Errorf(Pos{}, ParseError, "worker")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if got := len(r.Diagnostics()); got != 800 {
		t.Fatalf("want 800 diagnostics, got %d", got)
	}
}
