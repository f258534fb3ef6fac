// Package client speaks both intentd dialects over one connection per call.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/danmuck/intentctl/internal/intent"
	"github.com/danmuck/intentctl/internal/protocol"
	"github.com/danmuck/intentctl/internal/protocol/frame"
	"github.com/danmuck/intentctl/internal/protocol/framed"
	"github.com/danmuck/intentctl/internal/protocol/legacy"
)

var (
	ErrServerError     = errors.New("client: server error")
	ErrNoReply         = errors.New("client: no reply")
	ErrUnexpectedReply = errors.New("client: unexpected reply")
)

// maxReplyBytes bounds how much of a reply the client buffers.
const maxReplyBytes = 1 << 20

// Client dials Addr for each call. Legacy selects the text dialect.
type Client struct {
	Addr    string
	Legacy  bool
	Timeout time.Duration
}

func New(addr string) *Client {
	return &Client{Addr: addr, Timeout: 5 * time.Second}
}

// Train replaces the server model.
func (c *Client) Train(ctx context.Context, req protocol.TrainRequest) error {
	reply, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if c.Legacy {
		if string(reply) != string(legacy.TrainOK) {
			return fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
		}
		return nil
	}
	resp, err := framed.DecodeResponse(reply)
	if err != nil {
		return err
	}
	if resp.Status != framed.StatusSuccess {
		return fmt.Errorf("%w: %s", ErrServerError, resp.Error)
	}
	return nil
}

// Query classifies text. found is false when the server reports no match
// or an untrained model; any other server error is wrapped in ErrServerError.
func (c *Client) Query(ctx context.Context, text string) (res intent.Result, found bool, err error) {
	reply, err := c.roundTrip(ctx, protocol.QueryRequest{Text: text})
	if err != nil {
		return intent.Result{}, false, err
	}
	if c.Legacy {
		if string(reply) == string(legacy.QueryFailed) {
			return intent.Result{}, false, nil
		}
		if err := res.UnmarshalJSON(reply); err != nil {
			return intent.Result{}, false, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
		}
		return res, true, nil
	}

	resp, err := framed.DecodeResponse(reply)
	if err != nil {
		return intent.Result{}, false, err
	}
	switch {
	case resp.Status == framed.StatusError &&
		(resp.Error == protocol.MsgNoMatch || resp.Error == protocol.MsgNotTrained):
		return intent.Result{}, false, nil
	case resp.Status == framed.StatusError:
		return intent.Result{}, false, fmt.Errorf("%w: %s", ErrServerError, resp.Error)
	case resp.Data == nil:
		return intent.Result{}, false, fmt.Errorf("%w: success without data", ErrUnexpectedReply)
	default:
		return *resp.Data, true, nil
	}
}

// Raw sends payload as-is and returns whatever the server writes before closing.
func (c *Client) Raw(ctx context.Context, payload []byte) ([]byte, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return nil, err
	}
	return readReply(conn)
}

func (c *Client) roundTrip(ctx context.Context, req protocol.Request) ([]byte, error) {
	payload, err := c.encode(req)
	if err != nil {
		return nil, err
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if c.Legacy {
		if _, err := conn.Write(payload); err != nil {
			return nil, err
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	} else if err := frame.WriteFrame(conn, payload, frame.DefaultLimits()); err != nil {
		return nil, err
	}

	reply, err := readReply(conn)
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, ErrNoReply
	}
	return reply, nil
}

func (c *Client) encode(req protocol.Request) ([]byte, error) {
	if !c.Legacy {
		return framed.EncodeRequest(req)
	}
	b, ok := legacy.Encode(req)
	if !ok {
		return nil, fmt.Errorf("client: cannot encode %T in legacy dialect", req)
	}
	return b, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.Timeout))
	}
	return conn, nil
}

func readReply(conn net.Conn) ([]byte, error) {
	reply, err := io.ReadAll(io.LimitReader(conn, maxReplyBytes))
	if err != nil {
		return nil, err
	}
	return reply, nil
}
