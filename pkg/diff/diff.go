// Package diff compares the precheck and postcheck records of a host and
// reports what the upgrade changed, category by category.
package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// ChangeType represents the type of change
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// Change represents a single difference between two records
type Change struct {
	Type ChangeType `json:"type"`
	Path []string   `json:"path"`
	Old  any        `json:"old,omitempty"`
	New  any        `json:"new,omitempty"`
}

// PathString renders the path as "leaf1 > app-b".
func (c Change) PathString() string {
	return strings.Join(c.Path, " > ")
}

// Report is the outcome of comparing one category.
type Report struct {
	Category model.Category `json:"category"`
	Changes  []Change       `json:"changes"`
	Err      error          `json:"-"`
}

// Empty reports whether the category compared cleanly with no differences.
func (r *Report) Empty() bool {
	return r.Err == nil && len(r.Changes) == 0
}

// Count returns the number of changes of type t.
func (r *Report) Count(t ChangeType) int {
	n := 0
	for _, c := range r.Changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Compare diffs two records of a category in their JSON form. A []byte or
// json.RawMessage argument is taken as an encoded document; anything else
// is encoded first. A nil record, or either side failing to decode, yields a
// report with Err set.
func Compare(category model.Category, before, after any) *Report {
	r := &Report{Category: category}
	if before == nil {
		r.Err = util.NewMissingDataError(string(category), "no precheck record")
		return r
	}
	if after == nil {
		r.Err = util.NewMissingDataError(string(category), "no postcheck record")
		return r
	}
	a, err := decode(before)
	if err != nil {
		r.Err = fmt.Errorf("%s: decoding precheck record: %w", category, err)
		return r
	}
	b, err := decode(after)
	if err != nil {
		r.Err = fmt.Errorf("%s: decoding postcheck record: %w", category, err)
		return r
	}
	d := &differ{unordered: category == model.CategoryMAC}
	d.walk(nil, a, b)
	r.Changes = d.changes
	return r
}

func decode(v any) (any, error) {
	var data []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

type differ struct {
	// unordered compares lists as multisets rather than by position.
	unordered bool
	changes   []Change
}

func (d *differ) add(t ChangeType, path []string, from, to any) {
	d.changes = append(d.changes, Change{Type: t, Path: append([]string(nil), path...), Old: from, New: to})
}

func (d *differ) walk(path []string, a, b any) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			d.add(ChangeChanged, path, a, b)
			return
		}
		d.walkMap(path, av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok {
			d.add(ChangeChanged, path, a, b)
			return
		}
		if d.unordered {
			d.walkMultiset(path, av, bv)
		} else {
			d.walkList(path, av, bv)
		}
	default:
		if !scalarEqual(a, b) {
			d.add(ChangeChanged, path, a, b)
		}
	}
}

func (d *differ) walkMap(path []string, a, b map[string]any) {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		av, inA := a[k]
		bv, inB := b[k]
		p := append(path, k)
		switch {
		case !inB:
			d.add(ChangeRemoved, p, av, nil)
		case !inA:
			d.add(ChangeAdded, p, nil, bv)
		default:
			d.walk(p, av, bv)
		}
	}
}

func (d *differ) walkList(path []string, a, b []any) {
	for i := 0; i < len(a) || i < len(b); i++ {
		p := append(path, "["+strconv.Itoa(i)+"]")
		switch {
		case i >= len(b):
			d.add(ChangeRemoved, p, a[i], nil)
		case i >= len(a):
			d.add(ChangeAdded, p, nil, b[i])
		default:
			d.walk(p, a[i], b[i])
		}
	}
}

// walkMultiset reports entries whose multiplicity differs, ignoring order.
func (d *differ) walkMultiset(path []string, a, b []any) {
	count := make(map[string]int)
	for _, v := range b {
		count[canonical(v)]++
	}
	for _, v := range a {
		k := canonical(v)
		if count[k] > 0 {
			count[k]--
			continue
		}
		d.add(ChangeRemoved, path, v, nil)
	}
	seen := make(map[string]int)
	for _, v := range a {
		seen[canonical(v)]++
	}
	for _, v := range b {
		k := canonical(v)
		if seen[k] > 0 {
			seen[k]--
			continue
		}
		d.add(ChangeAdded, path, nil, v)
	}
}

func canonical(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func scalarEqual(a, b any) bool {
	an, aok := a.(json.Number)
	bn, bok := b.(json.Number)
	if aok && bok {
		return an == bn
	}
	return a == b
}

// CompareSnapshots diffs every diffable category of two snapshots in
// category order. A category with no data in after is reported as an error
// unless it had no data in before either.
func CompareSnapshots(before, after *model.Snapshot) []*Report {
	var reports []*Report
	for _, c := range model.Categories {
		if !c.Diffable() {
			continue
		}
		if after.IsMissing(c) && !before.IsMissing(c) {
			reports = append(reports, &Report{Category: c, Err: util.NewMissingDataError(string(c), "not captured in postcheck")})
			continue
		}
		a, err := before.Document(c)
		if err != nil {
			reports = append(reports, &Report{Category: c, Err: err})
			continue
		}
		b, err := after.Document(c)
		if err != nil {
			reports = append(reports, &Report{Category: c, Err: err})
			continue
		}
		reports = append(reports, Compare(c, a, b))
	}
	return reports
}
