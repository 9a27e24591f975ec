package docstore

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCompareValues(t *testing.T) {
	cases := []struct {
		a, b     any
		expected int
	}{
		{2024, float64(2024), 0},
		{json.Number("7"), int64(7), 0},
		{1, 2, -1},
		{"b", "a", 1},
		{5, "5", -1},
		{nil, "", 0},
	}
	for _, tc := range cases {
		if got := compareValues(tc.a, tc.b); got != tc.expected {
			t.Fatalf("compareValues(%v, %v) expected %d, got %d", tc.a, tc.b, tc.expected, got)
		}
	}
}

func TestResolve_TimestampsSortAsTimes(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	early := resolve(Record{"t": ServerTimestamp}, base)["t"].(string)
	late := resolve(Record{"t": ServerTimestamp}, base.Add(100*time.Millisecond))["t"].(string)
	if !(early < late) {
		t.Fatalf("expected %s < %s", early, late)
	}
	parsed, err := time.Parse(time.RFC3339Nano, early)
	if err != nil || !parsed.Equal(base) {
		t.Fatalf("stored timestamp %s does not parse back: %v", early, err)
	}
}

func TestSQLText(t *testing.T) {
	cases := []struct {
		in       any
		expected string
	}{
		{2024, "2024"},
		{float64(12.5), "12.5"},
		{"ST", "ST"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := sqlText(tc.in); got != tc.expected {
			t.Fatalf("sqlText(%v) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestSplitPath(t *testing.T) {
	c, id, err := SplitPath("/gramPanchayats/gp1/villages/v1/")
	if err != nil || c != "gramPanchayats/gp1/villages" || id != "v1" {
		t.Fatalf("unexpected split %q %q %v", c, id, err)
	}
	if _, _, err := SplitPath("gramPanchayats/gp1/villages"); err == nil {
		t.Fatalf("expected error for collection path")
	}
}

func TestApplyQuery_StableTieBreakOnID(t *testing.T) {
	snaps := []Snapshot{
		{ID: "b", Data: Record{"k": 1}},
		{ID: "a", Data: Record{"k": 1}},
		{ID: "c", Data: Record{"k": 0}},
	}
	out := applyQuery(snaps, Query{OrderBy: []Order{OrderBy("k", Asc)}, Limit: 2})
	if len(out) != 2 || out[0].ID != "c" || out[1].ID != "a" {
		t.Fatalf("unexpected order %+v", out)
	}
}
