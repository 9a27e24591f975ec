package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Encode turns a JSON-tagged struct into a Record.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Decode fills dst (a pointer to a JSON-tagged struct) from a snapshot. The
// document id is exposed as the "id" field.
func Decode(snap Snapshot, dst any) error {
	data := make(Record, len(snap.Data)+1)
	for k, v := range snap.Data {
		data[k] = v
	}
	data["id"] = snap.ID
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", snap.Path, err)
	}
	return nil
}

// resolve returns a copy of rec with sentinels and times turned into stored form.
func resolve(rec Record, now time.Time) Record {
	out := make(Record, len(rec))
	stamp := now.UTC().Format(TimeLayout)
	for k, v := range rec {
		switch t := v.(type) {
		case serverTimestamp:
			out[k] = stamp
		case *serverTimestamp:
			out[k] = stamp
		case time.Time:
			out[k] = t.UTC().Format(TimeLayout)
		case *time.Time:
			if t == nil {
				out[k] = nil
			} else {
				out[k] = t.UTC().Format(TimeLayout)
			}
		default:
			out[k] = v
		}
	}
	return out
}

func merge(base, patch Record) Record {
	out := make(Record, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func matches(rec Record, filters []Filter) bool {
	for _, f := range filters {
		v, ok := rec[f.Field]
		if !ok {
			return false
		}
		if compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// normalizeValue reduces a value to float64 for numbers and string otherwise.
func normalizeValue(v any) (float64, string, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), "", true
	case int32:
		return float64(n), "", true
	case int64:
		return float64(n), "", true
	case uint:
		return float64(n), "", true
	case uint32:
		return float64(n), "", true
	case uint64:
		return float64(n), "", true
	case float32:
		return float64(n), "", true
	case float64:
		return n, "", true
	case json.Number:
		f, err := n.Float64()
		if err == nil {
			return f, "", true
		}
		return 0, n.String(), false
	case string:
		return 0, n, false
	case time.Time:
		return 0, n.UTC().Format(TimeLayout), false
	case nil:
		return 0, "", false
	default:
		return 0, fmt.Sprint(n), false
	}
}

// compareValues orders numbers before strings, numbers numerically and
// strings lexically.
func compareValues(a, b any) int {
	af, as, aNum := normalizeValue(a)
	bf, bs, bNum := normalizeValue(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(as, bs)
}

// sqlText renders a filter value the way JSON_UNQUOTE prints it.
func sqlText(v any) string {
	f, s, isNum := normalizeValue(v)
	if isNum {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return s
}

func applyQuery(snaps []Snapshot, q Query) []Snapshot {
	out := snaps[:0]
	for _, s := range snaps {
		if matches(s.Data, q.Filters) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c := compareValues(out[i].Data[o.Field], out[j].Data[o.Field])
			if c == 0 {
				continue
			}
			if o.Direction == Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
