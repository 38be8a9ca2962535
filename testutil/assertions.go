package testutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/types"
)

// AssertPredicate fails the test when got differs from want
func AssertPredicate(t testing.TB, want, got filter.Predicate, context ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("predicate mismatch%s (-want +got):\n%s", suffix(context), diff)
	}
}

// AssertQuery compares two finalized queries
func AssertQuery(t testing.TB, want, got query.Query) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

// AssertRecordIDs checks the ids of the records, in order
func AssertRecordIDs(t testing.TB, records []types.Object, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, IDs(records)); diff != "" {
		t.Errorf("record ids mismatch (-want +got):\n%s", diff)
	}
}

// AssertErrorContains fails unless err is non-nil and mentions every fragment
func AssertErrorContains(t testing.TB, err error, fragments ...string) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error containing %q, got nil", fragments)
		return
	}
	for _, f := range fragments {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q does not contain %q", err, f)
		}
	}
}

func suffix(context []string) string {
	if len(context) == 0 {
		return ""
	}
	return " " + strings.Join(context, " ")
}
