package gnmi

import (
	"encoding/json"
	"fmt"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/ygot/ygot"
)

type document struct {
	Notification []notification `json:"notification"`
}

type notification struct {
	Timestamp int64    `json:"timestamp"`
	Prefix    string   `json:"prefix,omitempty"`
	Update    []update `json:"update,omitempty"`
}

type update struct {
	Path string          `json:"path"`
	Val  json.RawMessage `json:"val"`
}

// EncodeGetResponse renders a GetResponse as a Response document.
func EncodeGetResponse(resp *gnmipb.GetResponse) (Response, error) {
	doc := document{Notification: make([]notification, 0, len(resp.GetNotification()))}
	for _, n := range resp.GetNotification() {
		out := notification{Timestamp: n.GetTimestamp()}
		if n.GetPrefix() != nil {
			prefix, err := ygot.PathToString(n.GetPrefix())
			if err != nil {
				return nil, fmt.Errorf("notification prefix: %w", err)
			}
			out.Prefix = prefix
		}
		for _, u := range n.GetUpdate() {
			path, err := ygot.PathToString(u.GetPath())
			if err != nil {
				return nil, fmt.Errorf("update path: %w", err)
			}
			val, err := typedValueJSON(u.GetVal())
			if err != nil {
				return nil, fmt.Errorf("update %s: %w", path, err)
			}
			out.Update = append(out.Update, update{Path: path, Val: val})
		}
		doc.Notification = append(doc.Notification, out)
	}
	return json.Marshal(doc)
}

// typedValueJSON returns the JSON form of a gNMI typed value.
func typedValueJSON(tv *gnmipb.TypedValue) (json.RawMessage, error) {
	if tv == nil {
		return json.RawMessage("null"), nil
	}
	switch v := tv.GetValue().(type) {
	case *gnmipb.TypedValue_JsonIetfVal:
		return rawJSON(v.JsonIetfVal)
	case *gnmipb.TypedValue_JsonVal:
		return rawJSON(v.JsonVal)
	case *gnmipb.TypedValue_StringVal:
		return json.Marshal(v.StringVal)
	case *gnmipb.TypedValue_IntVal:
		return json.Marshal(v.IntVal)
	case *gnmipb.TypedValue_UintVal:
		return json.Marshal(v.UintVal)
	case *gnmipb.TypedValue_BoolVal:
		return json.Marshal(v.BoolVal)
	case *gnmipb.TypedValue_DoubleVal:
		return json.Marshal(v.DoubleVal)
	case *gnmipb.TypedValue_AsciiVal:
		return json.Marshal(v.AsciiVal)
	case nil:
		return json.RawMessage("null"), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", tv.GetValue())
}

func rawJSON(b []byte) (json.RawMessage, error) {
	if len(b) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("invalid JSON value")
	}
	return json.RawMessage(b), nil
}
