package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPClient sends envelopes as a single query-string-encoded JSON value
// over HTTP GET, the contract every replica listener speaks.
type HTTPClient struct {
	Client *http.Client
}

// Call sends req to the endpoint and parses the reply. Fire-and-forget
// requests return a nil response.
func (c *HTTPClient) Call(ctx context.Context, endpoint string, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint+"?jsonrpc="+url.QueryEscape(string(payload)), nil)
	if err != nil {
		return nil, err
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if !req.ID.Present() {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		return nil, nil
	}
	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("rpc endpoint %s: http %d", endpoint, httpResp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxFrameSize))
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}

// Handler exposes a dispatcher over the HTTP GET ?jsonrpc= contract.
// Responses carry Access-Control-Allow-Origin for browser-based callers.
func Handler(d *Dispatcher, allowOrigin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		}
		raw := r.URL.Query().Get("jsonrpc")
		if raw == "" {
			writeResponse(w, ErrorResponse(ID{}, CodeInvalidRequest, "missing jsonrpc query parameter", ""))
			return
		}
		req, err := ParseRequest([]byte(raw))
		if err != nil {
			var perr *Error
			if errors.As(err, &perr) {
				writeResponse(w, &Response{Err: perr})
				return
			}
			writeResponse(w, ErrorResponse(ID{}, CodeInvalidRequest, err.Error(), ""))
			return
		}

		resp := d.Invoke(r.Context(), req)
		if !req.ID.Present() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeResponse(w, resp)
	})
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	out, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}
