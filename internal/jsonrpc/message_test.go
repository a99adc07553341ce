package jsonrpc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRequestRoundTripNamed(t *testing.T) {
	req, err := NewRequest(StringID("r-1"), "PlaceBid", map[string]any{
		"bidderEmail": "b@x.com",
		"bidAmount":   15.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Method != "PlaceBid" || back.ID.String() != "r-1" || back.PositionalParams() {
		t.Fatalf("bad decode: %+v", back)
	}
	if string(back.Named["bidderEmail"]) != `"b@x.com"` {
		t.Fatalf("parameter lost: %s", back.Named["bidderEmail"])
	}
}

func TestRequestRoundTripPositional(t *testing.T) {
	req, err := NewPositionalRequest(NumberID(7), "GetUser", "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(req)
	back, err := ParseRequest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !back.PositionalParams() || len(back.Positional) != 1 || back.ID.String() != "7" {
		t.Fatalf("bad decode: %+v", back)
	}
}

func TestRequestIDAbsence(t *testing.T) {
	req, _ := NewRequest(ID{}, "GetAuctionItems", nil)
	data, _ := json.Marshal(req)
	if strings.Contains(string(data), `"id"`) {
		t.Fatalf("absent id must not be serialized: %s", data)
	}
	back, err := ParseRequest(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID.Present() {
		t.Fatal("round trip invented an id")
	}

	// id:null is distinct from an absent id; the legacy stack reads it as 0.
	withNull, err := ParseRequest([]byte(`{"jsonrpc":"2.0","id":null,"method":"GetAuctionItems"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !withNull.ID.Present() || withNull.ID.String() != "0" {
		t.Fatalf("id:null should decode as number 0, got %v", withNull.ID)
	}
}

func TestParseRequestErrors(t *testing.T) {
	cases := map[string]int{
		`{not json`: CodeParse,
		`{"jsonrpc":"1.0","method":"x"}`:             CodeInvalidRequest,
		`{"jsonrpc":"2.0"}`:                          CodeInvalidRequest,
		`{"jsonrpc":"2.0","method":"x","params":42}`: CodeInvalidRequest,
	}
	for in, code := range cases {
		_, err := ParseRequest([]byte(in))
		var perr *Error
		if !errors.As(err, &perr) || perr.Code != code {
			t.Fatalf("ParseRequest(%s): want code %d, got %v", in, code, err)
		}
	}
}

func TestResponseRoundTripResult(t *testing.T) {
	resp, err := ResultResponse(NumberID(3), map[string]string{"email": "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(resp)
	back, err := ParseResponse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Err != nil || back.ID.String() != "3" {
		t.Fatalf("bad decode: %+v", back)
	}
	var out map[string]string
	if err := json.Unmarshal(back.Result, &out); err != nil || out["email"] != "a@x.com" {
		t.Fatalf("result lost: %s", back.Result)
	}
}

func TestResponseRoundTripError(t *testing.T) {
	resp := ErrorResponse(StringID("r-9"), CodeMethodNotFound, "NoSuchMethod", "Method=NoSuchMethod, Params=")
	data, _ := json.Marshal(resp)

	// The error shape is flat: code under "error", message and data as
	// siblings.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["error"]) != "-32601" {
		t.Fatalf("error code must be a bare int: %s", raw["error"])
	}

	back, err := ParseResponse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Err == nil || back.Err.Code != CodeMethodNotFound || back.Err.Message != "NoSuchMethod" {
		t.Fatalf("bad decode: %+v", back.Err)
	}
}

func TestParseResponseRequiresResultOrError(t *testing.T) {
	if _, err := ParseResponse([]byte(`{"jsonrpc":"2.0","id":1}`)); err == nil {
		t.Fatal("expected error")
	}
}
