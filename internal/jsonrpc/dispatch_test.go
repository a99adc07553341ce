package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string     { return e.msg }
func (e *codedError) RPCErrorCode() int { return e.code }

func echoDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := NewDispatcher()
	d.Register("Greet", []string{"name", "times"}, func(ctx context.Context, args []json.RawMessage) (any, error) {
		name, err := Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		times, err := Arg[int](args, 1)
		if err != nil {
			return nil, err
		}
		return strings.Repeat(name, times), nil
	})
	return d
}

func TestInvokeNamedAndPositional(t *testing.T) {
	d := echoDispatcher(t)

	named, _ := NewRequest(NumberID(1), "Greet", map[string]any{"name": "hi", "times": 2})
	resp := d.Invoke(context.Background(), named)
	if resp.Err != nil {
		t.Fatalf("named call failed: %v", resp.Err)
	}
	if string(resp.Result) != `"hihi"` {
		t.Fatalf("got %s", resp.Result)
	}

	positional, _ := NewPositionalRequest(NumberID(2), "Greet", "yo", 3)
	resp = d.Invoke(context.Background(), positional)
	if resp.Err != nil {
		t.Fatalf("positional call failed: %v", resp.Err)
	}
	if string(resp.Result) != `"yoyoyo"` {
		t.Fatalf("got %s", resp.Result)
	}
}

func TestInvokeMethodLookupIsCaseSensitive(t *testing.T) {
	d := echoDispatcher(t)
	req, _ := NewRequest(NumberID(1), "greet", map[string]any{"name": "x", "times": 1})
	resp := d.Invoke(context.Background(), req)
	if resp.Err == nil || resp.Err.Code != CodeMethodNotFound {
		t.Fatalf("want method-not-found, got %+v", resp)
	}
}

func TestInvokeMissingNamedParameter(t *testing.T) {
	d := echoDispatcher(t)
	req, _ := NewRequest(NumberID(1), "Greet", map[string]any{"name": "x"})
	resp := d.Invoke(context.Background(), req)
	if resp.Err == nil || resp.Err.Code != CodeInvalidParameters {
		t.Fatalf("want invalid-parameters, got %+v", resp)
	}
	if !strings.Contains(resp.Err.Data, "Method=Greet") {
		t.Fatalf("data should carry the call context: %q", resp.Err.Data)
	}
}

func TestInvokeErrorCodeMapping(t *testing.T) {
	d := NewDispatcher()
	d.Register("Coded", nil, func(ctx context.Context, args []json.RawMessage) (any, error) {
		return nil, &codedError{code: -32003, msg: "expired"}
	})
	d.Register("Plain", nil, func(ctx context.Context, args []json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	})
	d.Register("Invalid", nil, func(ctx context.Context, args []json.RawMessage) (any, error) {
		return nil, InvalidParams("bad input")
	})

	check := func(method string, want int) {
		t.Helper()
		req, _ := NewRequest(NumberID(1), method, nil)
		resp := d.Invoke(context.Background(), req)
		if resp.Err == nil || resp.Err.Code != want {
			t.Fatalf("%s: want code %d, got %+v", method, want, resp.Err)
		}
	}
	check("Coded", -32003)
	check("Plain", CodeApplication)
	check("Invalid", CodeInvalidParameters)
}

func TestInvokePropagatesContext(t *testing.T) {
	type ctxKey struct{}
	d := NewDispatcher()
	d.Register("WhoAmI", nil, func(ctx context.Context, args []json.RawMessage) (any, error) {
		v, _ := ctx.Value(ctxKey{}).(string)
		return v, nil
	})
	req, _ := NewRequest(NumberID(1), "WhoAmI", nil)
	ctx := context.WithValue(context.Background(), ctxKey{}, "caller")
	resp := d.Invoke(ctx, req)
	if string(resp.Result) != `"caller"` {
		t.Fatalf("got %s", resp.Result)
	}
}
