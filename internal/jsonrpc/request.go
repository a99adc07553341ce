package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Request is a wire-level method call. Parameters are either named or
// positional; a request is immutable once constructed.
type Request struct {
	ID         ID
	Method     string
	Named      map[string]json.RawMessage
	Positional []json.RawMessage
	positional bool
}

// NewRequest builds a request with named parameters.
func NewRequest(id ID, method string, params map[string]any) (*Request, error) {
	named := make(map[string]json.RawMessage, len(params))
	for k, v := range params {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal parameter %q: %w", k, err)
		}
		named[k] = raw
	}
	return &Request{ID: id, Method: method, Named: named}, nil
}

// NewPositionalRequest builds a request with positional parameters.
func NewPositionalRequest(id ID, method string, params ...any) (*Request, error) {
	positional := make([]json.RawMessage, 0, len(params))
	for i, v := range params {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal parameter %d: %w", i, err)
		}
		positional = append(positional, raw)
	}
	return &Request{ID: id, Method: method, Positional: positional, positional: true}, nil
}

func (r *Request) PositionalParams() bool { return r.positional }

func (r *Request) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"jsonrpc":"` + Version + `"`)
	if r.ID.Present() {
		idJSON, err := r.ID.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"id":`)
		buf.Write(idJSON)
	}
	buf.WriteString(`,"method":`)
	method, err := json.Marshal(r.Method)
	if err != nil {
		return nil, err
	}
	buf.Write(method)
	switch {
	case r.positional:
		buf.WriteString(`,"params":[`)
		for i, p := range r.Positional {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(p)
		}
		buf.WriteByte(']')
	case r.Named != nil:
		// Deterministic key order keeps serialized requests comparable.
		keys := make([]string, 0, len(r.Named))
		for k := range r.Named {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString(`,"params":{`)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(r.Named[k])
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseRequest decodes a request envelope. Failures carry the protocol error
// code the server should answer with: CodeParse for malformed JSON,
// CodeInvalidRequest for a structurally invalid envelope.
func ParseRequest(data []byte) (*Request, error) {
	var env struct {
		Version *string         `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  *string         `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &Error{Code: CodeParse, Message: "invalid JSON: " + err.Error()}
	}
	if env.Version == nil || *env.Version != Version {
		return nil, &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf("jsonrpc must be %q", Version)}
	}
	if env.Method == nil || *env.Method == "" {
		return nil, &Error{Code: CodeInvalidRequest, Message: "method is required"}
	}
	id, err := parseID(env.ID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidRequest, Message: err.Error()}
	}

	req := &Request{ID: id, Method: *env.Method}
	if env.Params == nil {
		return req, nil
	}
	switch trimmed := strings.TrimSpace(string(env.Params)); {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(env.Params, &req.Positional); err != nil {
			return nil, &Error{Code: CodeInvalidRequest, Message: "invalid positional params: " + err.Error()}
		}
		req.positional = true
	case strings.HasPrefix(trimmed, "{"):
		if err := json.Unmarshal(env.Params, &req.Named); err != nil {
			return nil, &Error{Code: CodeInvalidRequest, Message: "invalid named params: " + err.Error()}
		}
	default:
		return nil, &Error{Code: CodeInvalidRequest, Message: "params must be an array or an object"}
	}
	return req, nil
}
