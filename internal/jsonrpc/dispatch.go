package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// HandlerFunc executes one operation. args holds the raw parameter values in
// declaration order; the caller's context is passed through so handlers see
// cancellation without it ever appearing on the wire.
type HandlerFunc func(ctx context.Context, args []json.RawMessage) (any, error)

type methodEntry struct {
	params []string
	fn     HandlerFunc
}

// Dispatcher maps method names to typed handlers. It replaces runtime
// reflection with a registration table built once at startup: an operation is
// callable by name, but every parameter is decoded through a typed closure.
type Dispatcher struct {
	methods map[string]methodEntry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{methods: make(map[string]methodEntry)}
}

// Register declares an operation and its parameter names. Parameters match
// positionally or by name; registration order is declaration order.
func (d *Dispatcher) Register(name string, params []string, fn HandlerFunc) {
	d.methods[name] = methodEntry{params: params, fn: fn}
}

// Invoke resolves the request's method (case-sensitive) and runs it.
// Validation-class failures map to CodeInvalidParameters; anything else
// unexpected maps into the application range. Error replies carry the
// operation name and an argument summary in data.
func (d *Dispatcher) Invoke(ctx context.Context, req *Request) *Response {
	m, ok := d.methods[req.Method]
	if !ok {
		return ErrorResponse(req.ID, CodeMethodNotFound, req.Method, "")
	}

	args := make([]json.RawMessage, len(m.params))
	for i, name := range m.params {
		if req.PositionalParams() {
			if i < len(req.Positional) {
				args[i] = req.Positional[i]
			}
			continue
		}
		raw, ok := req.Named[name]
		if !ok {
			return ErrorResponse(req.ID, CodeInvalidParameters,
				fmt.Sprintf("missing required argument: %s", name), callContext(req, m.params))
		}
		args[i] = raw
	}

	result, err := m.fn(ctx, args)
	if err != nil {
		code := CodeApplication
		var coded interface{ RPCErrorCode() int }
		if errors.As(err, &coded) {
			code = coded.RPCErrorCode()
		}
		return ErrorResponse(req.ID, code, err.Error(), callContext(req, m.params))
	}

	resp, err := ResultResponse(req.ID, result)
	if err != nil {
		return ErrorResponse(req.ID, CodeInternal, err.Error(), callContext(req, m.params))
	}
	return resp
}

func callContext(req *Request, params []string) string {
	var parts []string
	if req.PositionalParams() {
		for _, raw := range req.Positional {
			parts = append(parts, string(raw))
		}
	} else {
		for _, name := range params {
			if raw, ok := req.Named[name]; ok {
				parts = append(parts, name+"="+string(raw))
			}
		}
	}
	return fmt.Sprintf("Method=%s, Params=%s", req.Method, strings.Join(parts, ", "))
}

// Arg decodes the i-th argument into T. Decode failures are reported as
// invalid parameters.
func Arg[T any](args []json.RawMessage, i int) (T, error) {
	var v T
	if i >= len(args) || args[i] == nil {
		return v, InvalidParams("missing required argument %d", i)
	}
	if err := json.Unmarshal(args[i], &v); err != nil {
		return v, InvalidParams("argument %d: %v", i, err)
	}
	return v, nil
}
