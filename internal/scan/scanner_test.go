package scan_test

import (
	"strings"
	"testing"

	"github.com/arrlang/nial/internal/scan"
)

func TestScanIdentifiersFoldToUpper(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("foo Bar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 2 || toks[0].Text != "FOO" || toks[1].Text != "BAR" {
		t.Fatalf("got %+v", toks)
	}
}

func TestScanIntegerAndReal(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("42 3.14"))
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Sub != scan.IntLit || toks[0].Text != "42" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Sub != scan.RealLit || toks[1].Text != "3.14" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestScanPhraseVsString(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("'phrase 'string' +"))
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Sub != scan.PhraseLit || toks[0].Text != "phrase" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Sub != scan.StringLit || toks[1].Text != "string" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestScanDoubledQuoteEscape(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("'it''s'"))
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Sub != scan.StringLit || toks[0].Text != "it's" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestScanBareFault(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("?oops"))
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Sub != scan.FaultLit || toks[0].Text != "?oops" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestScanSkipsComments(t *testing.T) {
	toks, err := scan.ScanAll(strings.NewReader("1 (* a comment *) 2"))
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 2 || toks[0].Text != "1" || toks[1].Text != "2" {
		t.Fatalf("got %+v", toks)
	}
}

func TestScanErrorOnUnexpectedCharacter(t *testing.T) {
	_, err := scan.ScanAll(strings.NewReader("\x01"))
	if err == nil {
		t.Fatalf("expected a scan error")
	}
}
