package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Error is a wire-level failure: a protocol error code, a human-readable
// message and optional diagnostic context.
type Error struct {
	Code    int
	Message string
	Data    string
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("jsonrpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func (e *Error) RPCErrorCode() int { return e.Code }

// InvalidParams builds an invalid-parameters error, the code the dispatcher
// maps validation-class failures onto.
func InvalidParams(format string, a ...any) error {
	return &Error{Code: CodeInvalidParameters, Message: fmt.Sprintf(format, a...)}
}

// Response is either a result or an error, correlated by id.
type Response struct {
	ID     ID
	Result json.RawMessage
	Err    *Error
}

// ResultResponse marshals v as the call result.
func ResultResponse(id ID, v any) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Response{ID: id, Result: raw}, nil
}

// ErrorResponse builds an error reply.
func ErrorResponse(id ID, code int, message, data string) *Response {
	return &Response{ID: id, Err: &Error{Code: code, Message: message, Data: data}}
}

func (r *Response) MarshalJSON() ([]byte, error) {
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
	if r.Err == nil {
		buf.WriteString(`,"result":`)
		if r.Result == nil {
			buf.WriteString("null")
		} else {
			buf.Write(r.Result)
		}
	} else {
		fmt.Fprintf(&buf, `,"error":%d`, r.Err.Code)
		msg, _ := json.Marshal(r.Err.Message)
		buf.WriteString(`,"message":`)
		buf.Write(msg)
		if r.Err.Data != "" {
			data, _ := json.Marshal(r.Err.Data)
			buf.WriteString(`,"data":`)
			buf.Write(data)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseResponse decodes a response envelope; it must contain either a result
// or an error.
func ParseResponse(data []byte) (*Response, error) {
	var env struct {
		Version *string         `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Err     *int            `json:"error"`
		Message string          `json:"message"`
		Data    string          `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &Error{Code: CodeParse, Message: "invalid JSON: " + err.Error()}
	}
	if env.Version == nil || *env.Version != Version {
		return nil, &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf("jsonrpc must be %q", Version)}
	}
	id, err := parseID(env.ID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidRequest, Message: err.Error()}
	}
	switch {
	case env.Result != nil:
		return &Response{ID: id, Result: env.Result}, nil
	case env.Err != nil:
		return &Response{ID: id, Err: &Error{Code: *env.Err, Message: env.Message, Data: env.Data}}, nil
	default:
		return nil, &Error{Code: CodeInvalidRequest, Message: "response must contain result or error"}
	}
}
