package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"kasirlokal/internal/store"
)

// LegacySource yields the raw legacy blob. ok is false when there is none.
type LegacySource interface {
	Load(ctx context.Context) (data []byte, ok bool, err error)
}

// FileSource reads a JSON dump of the old flat key-value storage.
type FileSource struct {
	Path string
}

func (f FileSource) Load(_ context.Context) ([]byte, bool, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read legacy data %s: %w", f.Path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

type BytesSource []byte

func (b BytesSource) Load(_ context.Context) ([]byte, bool, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, false, nil
	}
	return []byte(b), true, nil
}

type record map[string]any

// legacyState is the decoded blob, one record list per kind.
type legacyState struct {
	kinds map[store.Kind][]record
}

var kindAliases = map[string]store.Kind{
	"users":        store.KindUsers,
	"products":     store.KindProducts,
	"categories":   store.KindCategories,
	"transactions": store.KindTransactions,
	"sales":        store.KindTransactions,
	"activityLogs": store.KindActivityLogs,
	"logs":         store.KindActivityLogs,
	"settings":     store.KindSettings,
}

func decodeLegacy(data []byte) (legacyState, error) {
	var root any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return legacyState{}, fmt.Errorf("%w: legacy data is not JSON: %v", store.ErrInvalidFormat, err)
	}
	obj, ok := asObject(root)
	if !ok {
		return legacyState{}, fmt.Errorf("%w: legacy data is not an object", store.ErrInvalidFormat)
	}

	state := legacyState{kinds: map[store.Kind][]record{}}
	found := findState(obj, 0)
	if found == nil {
		return state, nil
	}
	for key, value := range found {
		kind, ok := kindAliases[key]
		if !ok {
			continue
		}
		state.kinds[kind] = append(state.kinds[kind], asRecords(value)...)
	}
	return state, nil
}

// findState locates the object holding the kind keys. It may sit under a
// "state" wrapper or inside a string value of the flat storage dump.
func findState(obj map[string]any, depth int) map[string]any {
	if depth > 4 {
		return nil
	}
	if inner, ok := asObject(obj["state"]); ok {
		if found := findState(inner, depth+1); found != nil {
			return found
		}
	}
	for key := range obj {
		if _, ok := kindAliases[key]; ok {
			return obj
		}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if inner, ok := asObject(obj[key]); ok {
			if found := findState(inner, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}

// asObject accepts an object or a string holding a JSON object.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		var decoded any
		dec := json.NewDecoder(strings.NewReader(t))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, false
		}
		obj, ok := decoded.(map[string]any)
		return obj, ok
	}
	return nil, false
}

// asRecords accepts a list, a single object, an id-keyed object, or any of
// those encoded as a JSON string.
func asRecords(v any) []record {
	if s, ok := v.(string); ok {
		var decoded any
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil
		}
		v = decoded
	}

	switch t := v.(type) {
	case []any:
		out := make([]record, 0, len(t))
		for _, item := range t {
			if obj, ok := asObject(item); ok {
				out = append(out, obj)
			}
		}
		return out
	case map[string]any:
		if looksLikeRecord(t) {
			return []record{t}
		}
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		out := make([]record, 0, len(t))
		for _, key := range keys {
			obj, ok := asObject(t[key])
			if !ok {
				continue
			}
			if _, hasID := obj["id"]; !hasID {
				obj["id"] = key
			}
			out = append(out, obj)
		}
		return out
	}
	return nil
}

func looksLikeRecord(obj map[string]any) bool {
	for _, key := range []string{"id", "name", "storeName", "username", "sku", "action"} {
		if v, ok := obj[key]; ok {
			if _, nested := v.(map[string]any); !nested {
				return true
			}
		}
	}
	return false
}

func (r record) value(names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := r[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r record) str(names ...string) string {
	v, ok := r.value(names...)
	if !ok {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (r record) integer(def int, names ...string) int {
	v, ok := r.value(names...)
	if !ok {
		return def
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return int(math.Round(f))
}

func (r record) optionalInt(names ...string) *int {
	if _, ok := r.value(names...); !ok {
		return nil
	}
	n := r.integer(math.MinInt, names...)
	if n == math.MinInt {
		return nil
	}
	return &n
}

func (r record) boolean(def bool, names ...string) bool {
	v, ok := r.value(names...)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func (r record) money(names ...string) (decimal.Decimal, bool) {
	v, ok := r.value(names...)
	if !ok {
		return decimal.Zero, false
	}
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// timestamp accepts RFC3339 and the other layouts cast knows, date-only
// strings, and epoch milliseconds as number or numeric string.
func (r record) timestamp(def time.Time, names ...string) time.Time {
	v, ok := r.value(names...)
	if !ok {
		return def
	}
	if n, isNum := v.(json.Number); isNum {
		v = n.String()
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if s == "" {
			return def
		}
		if ms, err := cast.ToInt64E(s); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		t, err := cast.ToTimeE(s)
		if err != nil {
			return def
		}
		return t
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return time.UnixMilli(int64(f)).UTC()
	}
	return def
}

func (r record) object(names ...string) record {
	v, ok := r.value(names...)
	if !ok {
		return nil
	}
	obj, ok := asObject(v)
	if !ok {
		return nil
	}
	return obj
}

func (r record) list(names ...string) []record {
	v, ok := r.value(names...)
	if !ok {
		return nil
	}
	return asRecords(v)
}
