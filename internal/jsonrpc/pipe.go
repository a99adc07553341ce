package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"sync/atomic"
)

// PipeServer serves the framed byte-stream transport: each frame carries one
// request envelope, each reply frame one response. Requests without an id get
// no reply frame.
type PipeServer struct {
	dispatcher *Dispatcher

	ln     net.Listener
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewPipeServer(d *Dispatcher) *PipeServer {
	return &PipeServer{dispatcher: d}
}

// Serve accepts connections until ctx is canceled or the listener fails.
func (s *PipeServer) Serve(ctx context.Context, ln net.Listener) error {
	s.ln = ln
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				continue
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *PipeServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *PipeServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		payload, err := ReadFrame(r)
		if err != nil {
			return
		}
		resp := s.handleFrame(ctx, payload)
		if resp == nil {
			continue
		}
		out, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := WriteFrame(conn, out); err != nil {
			return
		}
	}
}

func (s *PipeServer) handleFrame(ctx context.Context, payload []byte) *Response {
	req, err := ParseRequest(payload)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return &Response{Err: perr}
		}
		return ErrorResponse(ID{}, CodeInvalidRequest, err.Error(), "")
	}
	resp := s.dispatcher.Invoke(ctx, req)
	if !req.ID.Present() {
		return nil
	}
	return resp
}

// PipeClient issues one framed request per connection, mirroring the legacy
// pipe transport's connect-send-receive cycle.
type PipeClient struct {
	Network string
	Address string
	Dialer  net.Dialer
}

func (c *PipeClient) Call(ctx context.Context, req *Request) (*Response, error) {
	network := c.Network
	if network == "" {
		network = "tcp"
	}
	conn, err := c.Dialer.DialContext(ctx, network, c.Address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, payload); err != nil {
		return nil, err
	}
	if !req.ID.Present() {
		return nil, nil
	}
	frame, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	return ParseResponse(frame)
}
