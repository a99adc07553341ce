package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID correlates a response to its request. The zero value is the absent id:
// a request without an id expects no reply, which is distinct from id null
// (the legacy stack reads null as the number zero).
type ID struct {
	present  bool
	isString bool
	str      string
	num      int64
}

func NumberID(n int64) ID  { return ID{present: true, num: n} }
func StringID(s string) ID { return ID{present: true, isString: true, str: s} }

func (id ID) Present() bool { return id.present }

func (id ID) String() string {
	switch {
	case !id.present:
		return "<none>"
	case id.isString:
		return id.str
	default:
		return strconv.FormatInt(id.num, 10)
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isString {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

func parseID(raw json.RawMessage) (ID, error) {
	if raw == nil {
		return ID{}, nil
	}
	if string(raw) == "null" {
		return NumberID(0), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return StringID(s), nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return NumberID(n), nil
	}
	return ID{}, fmt.Errorf("id must be a string or a number, got %s", raw)
}
