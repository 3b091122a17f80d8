package main

import (
	"strings"
	"testing"
)

const source = "package sqlinline\n\n" +
	"const QGood = `--sql 0c0ef3b2-5a43-4f0c-8f57-0f7f3e8f5b11\nselect 1;\n`\n\n" +
	"const QMissing = `select id from accounts;`\n\n" +
	"const QAgain = `--sql 0c0ef3b2-5a43-4f0c-8f57-0f7f3e8f5b11\nwith x as (select 1) select * from x;\n`\n\n" +
	"const message = \"could not update the account\"\n"

func TestLintSource(t *testing.T) {
	violations, markers, err := lintSource("queries.go", source)
	if err != nil {
		t.Fatalf("lintSource: %v", err)
	}
	if len(violations) != 1 || violations[0].name != "QMissing" {
		t.Fatalf("expected one violation for QMissing, got %+v", violations)
	}
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}

	dups := duplicateMarkers(markers)
	if len(dups) != 1 || dups[0].name != "QAgain" || !strings.Contains(dups[0].message, "QGood") {
		t.Fatalf("expected QAgain to collide with QGood, got %+v", dups)
	}
}

func TestLooksLikeSQL(t *testing.T) {
	cases := map[string]bool{
		"select 1":                         true,
		"\n  --sql x\n  UPDATE accounts":   true,
		"generation interrupted by restart": false,
		"please update your key":            false,
		"":                                  false,
	}
	for in, want := range cases {
		if got := looksLikeSQL(in); got != want {
			t.Fatalf("looksLikeSQL(%q) = %v, want %v", in, got, want)
		}
	}
}
