// Package normalize converts raw gNMI documents into canonical records.
//
// Each category has one builder that takes the unwrapped payload of a
// single response. A payload that does not exist means "no data"; builders
// that need structure return a MissingDataError for their category and the
// caller decides whether to carry on.
package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// Unwrap extracts the payload of a get response: the value of the first
// update of the first notification. A mapping with exactly one top-level
// key unwraps to that key's value and a non-empty string is returned as is.
// Anything else is "no data" and ok is false.
func Unwrap(raw []byte) (payload gjson.Result, ok bool) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	val := gjson.GetBytes(raw, "notification.0.update.0.val")
	switch {
	case val.IsObject():
		var (
			only  gjson.Result
			count int
		)
		val.ForEach(func(_, v gjson.Result) bool {
			only = v
			count++
			return count < 2
		})
		if count == 1 {
			return only, true
		}
	case val.Type == gjson.String && val.Str != "":
		return val, true
	}
	return gjson.Result{}, false
}

// child returns the member of obj named name, ignoring any YANG module
// prefix on the member key.
func child(obj gjson.Result, name string) gjson.Result {
	if !obj.IsObject() {
		return gjson.Result{}
	}
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if util.StripModule(k.String()) == name {
			found = v
			return false
		}
		return true
	})
	return found
}

// elements returns the entries of a YANG list. A lone object is treated as a
// single-entry list.
func elements(r gjson.Result) []gjson.Result {
	switch {
	case r.IsArray():
		return r.Array()
	case r.IsObject():
		return []gjson.Result{r}
	}
	return nil
}

// list returns the entries of payload or a MissingDataError for category.
func list(category model.Category, payload gjson.Result) ([]gjson.Result, error) {
	if !payload.Exists() || payload.Type == gjson.Null {
		return nil, util.NewMissingDataError(string(category), "empty response")
	}
	if !payload.IsArray() && !payload.IsObject() {
		return nil, util.NewMissingDataError(string(category), "expected a list, got "+payload.Type.String())
	}
	return elements(payload), nil
}

// enum strips a module prefix from an identityref value.
func enum(r gjson.Result) string {
	return util.StripModule(r.String())
}
