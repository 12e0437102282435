package catalog

import (
	"strconv"
	"strings"
	"testing"
)

func TestBuildUpsertPreservesIdentityOnConflict(t *testing.T) {
	sql := buildUpsert(2)

	idx := strings.Index(sql, "ON CONFLICT (name) DO UPDATE SET ")
	if idx < 0 {
		t.Fatalf("missing conflict clause:\n%s", sql)
	}
	update := sql[idx:]

	// Re-ingesting a record must never rewrite its identity or creation
	// time; only mutable columns and updated_at change.
	for _, forbidden := range []string{"id = EXCLUDED.id", "name = EXCLUDED.name", "created_at = EXCLUDED"} {
		if strings.Contains(update, forbidden) {
			t.Errorf("update clause must not contain %q:\n%s", forbidden, update)
		}
	}
	if !strings.Contains(update, "updated_at = now()") {
		t.Errorf("update clause must refresh updated_at:\n%s", update)
	}
	for _, col := range upsertColumns {
		if col == "id" || col == "name" {
			continue
		}
		if !strings.Contains(update, col+" = EXCLUDED."+col) {
			t.Errorf("mutable column %s missing from update clause:\n%s", col, update)
		}
	}
}

func TestBuildUpsertPlaceholderCount(t *testing.T) {
	for _, n := range []int{1, 3} {
		sql := buildUpsert(n)
		want := n * len(upsertColumns)
		if got := strings.Count(sql, "$"); got != want {
			t.Errorf("buildUpsert(%d): %d placeholders, want %d", n, got, want)
		}
		if !strings.Contains(sql, "$"+strconv.Itoa(want)) {
			t.Errorf("buildUpsert(%d): missing final placeholder $%d", n, want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, pageSize, want int
	}{
		{25, 10, 3},
		{0, 10, 0},
		{30, 10, 3},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := totalPages(tc.total, tc.pageSize); got != tc.want {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}
