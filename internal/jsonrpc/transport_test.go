package jsonrpc

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pingDispatcher(notified *atomic.Int32) *Dispatcher {
	d := NewDispatcher()
	d.Register("Ping", []string{"value"}, func(ctx context.Context, args []json.RawMessage) (any, error) {
		v, err := Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		if notified != nil {
			notified.Add(1)
		}
		return "pong:" + v, nil
	})
	return d
}

func TestHTTPRoundTrip(t *testing.T) {
	srv := httptest.NewServer(Handler(pingDispatcher(nil), "*"))
	defer srv.Close()

	client := &HTTPClient{Client: srv.Client()}
	req, _ := NewRequest(StringID("h-1"), "Ping", map[string]any{"value": "x"})
	resp, err := client.Call(context.Background(), srv.URL, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Err != nil || string(resp.Result) != `"pong:x"` {
		t.Fatalf("got %+v", resp)
	}
}

func TestHTTPHandlerCORSAndErrors(t *testing.T) {
	srv := httptest.NewServer(Handler(pingDispatcher(nil), "*"))
	defer srv.Close()

	httpResp, err := srv.Client().Get(srv.URL + "?jsonrpc=%7Bnot-json")
	if err != nil {
		t.Fatal(err)
	}
	defer httpResp.Body.Close()
	if got := httpResp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("missing CORS header, got %q", got)
	}
	var env struct {
		Error *int `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Error == nil || *env.Error != CodeParse {
		t.Fatalf("want parse error, got %v", env.Error)
	}
}

func TestHTTPFireAndForget(t *testing.T) {
	var notified atomic.Int32
	srv := httptest.NewServer(Handler(pingDispatcher(&notified), ""))
	defer srv.Close()

	client := &HTTPClient{Client: srv.Client()}
	req, _ := NewRequest(ID{}, "Ping", map[string]any{"value": "n"})
	resp, err := client.Call(context.Background(), srv.URL, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp != nil {
		t.Fatalf("fire-and-forget must not return a response: %+v", resp)
	}
	if notified.Load() != 1 {
		t.Fatalf("handler not invoked, count=%d", notified.Load())
	}
}

func TestPipeRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewPipeServer(pingDispatcher(nil))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &PipeClient{Address: ln.Addr().String()}
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	req, _ := NewRequest(NumberID(11), "Ping", map[string]any{"value": "p"})
	resp, err := client.Call(callCtx, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Err != nil || string(resp.Result) != `"pong:p"` {
		t.Fatalf("got %+v", resp)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
