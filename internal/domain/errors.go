package domain

import "fmt"

// Application error codes carried across the RPC boundary. Business-rule
// violations use the implementation-defined range -32000..-32099; input
// validation failures map onto the protocol's invalid-params code so the
// dispatch layer surfaces them as such.
const (
	CodeInvalidInput   = -32602
	CodeApplication    = -32000
	CodeNotFound       = -32001
	CodeAlreadyExists  = -32002
	CodeAuctionExpired = -32003
	CodeSelfOutbid     = -32004
	CodeBidTooLow      = -32005
)

// Error is a business-rule or validation failure with a stable wire code.
// Errors with the same code compare equal under errors.Is, so callers can
// match the sentinel values below against errors reconstructed from a
// remote response.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string     { return e.Message }
func (e *Error) RPCErrorCode() int { return e.Code }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists  = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrAuctionExpired = &Error{Code: CodeAuctionExpired, Message: "auction expired"}
	ErrSelfOutbid     = &Error{Code: CodeSelfOutbid, Message: "cannot outbid yourself"}
	ErrBidTooLow      = &Error{Code: CodeBidTooLow, Message: "bid not greater than highest bid"}
	ErrInvalidInput   = &Error{Code: CodeInvalidInput, Message: "invalid input"}
)

func NotFoundf(format string, a ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, a...)}
}

func AlreadyExistsf(format string, a ...any) error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, a...)}
}

func invalidf(format string, a ...any) error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, a...)}
}

// FromRPC rebuilds a typed error from a wire code and message, used by the
// client proxy so remote failures keep their identity across the hop.
func FromRPC(code int, message string) error {
	return &Error{Code: code, Message: message}
}
