package infra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/sqlinline"
)

func TestSplitMarkerAcceptsRepositoryStatements(t *testing.T) {
	for _, q := range []string{sqlinline.QSelectAccount, sqlinline.QUpsertAccount, sqlinline.QApplyLedgerEntry} {
		id, stmt, err := splitMarker(q)
		if err != nil {
			t.Fatalf("splitMarker returned error: %v", err)
		}
		if !strings.HasPrefix(q, "--sql "+id+"\n") {
			t.Fatalf("marker id %q does not match %q", id, q[:50])
		}
		if strings.Contains(stmt, "--sql") {
			t.Fatalf("statement still carries its marker: %q", stmt)
		}
	}
}

func TestSplitMarkerRejects(t *testing.T) {
	cases := map[string]string{
		"missing":   "select 1",
		"malformed": "--sql not-a-uuid\nselect 1",
		"empty":     "",
		"no body":   "--sql e58f5c90-334a-4f85-9f8c-51965e6ea937\n   ",
	}
	for name, q := range cases {
		if _, _, err := splitMarker(q); !errors.Is(err, ErrSQLMarker) {
			t.Fatalf("%s: err = %v, want ErrSQLMarker", name, err)
		}
	}
}

func TestUnmarkedQueryNeverReachesThePool(t *testing.T) {
	r := NewSQLRunner(nil, zerolog.Nop())
	if _, err := r.Exec(context.Background(), "delete from accounts"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Exec err = %v, want ErrSQLMarker", err)
	}
	if _, err := r.Query(context.Background(), "select id from projects"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Query err = %v, want ErrSQLMarker", err)
	}
	var id string
	if err := r.QueryRow(context.Background(), "select id from accounts").Scan(&id); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Scan err = %v, want ErrSQLMarker", err)
	}
}
