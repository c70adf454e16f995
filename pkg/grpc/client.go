package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const dialTimeout = 5 * time.Second

// ErrClientClosed is returned by calls made after the connection failed or
// was closed.
var ErrClientClosed = errors.New("rpc client closed")

type wireResponse struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Kind  string          `json:"kind"`
}

// Client multiplexes calls over one TCP connection. Responses are matched
// to callers by request ID, so a caller that gives up on its context does
// not poison the connection for others.
type Client struct {
	conn   net.Conn
	nextID atomic.Int64

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	pending map[string]chan wireResponse
	err     error
	done    chan struct{}
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	c := &Client{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		pending: make(map[string]chan wireResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call invokes method with params and decodes the reply into result, which
// may be nil. The ctx deadline travels with the request and bounds the
// handler on the server.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}
	req := Request{Method: method, ID: strconv.FormatInt(c.nextID.Add(1), 10), Params: raw}
	if deadline, ok := ctx.Deadline(); ok {
		req.TimeoutMs = time.Until(deadline).Milliseconds()
		if req.TimeoutMs <= 0 {
			return fmt.Errorf("calling %s: %w", method, context.DeadlineExceeded)
		}
	}

	ch, err := c.register(req.ID)
	if err != nil {
		return err
	}
	defer c.unregister(req.ID)

	if err := c.send(ctx, req); err != nil {
		return fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return &RemoteError{Method: method, Kind: resp.Kind, Message: resp.Error}
		}
		if result != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, result); err != nil {
				return fmt.Errorf("decoding %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("calling %s: %w", method, ctx.Err())
	case <-c.done:
		return fmt.Errorf("calling %s: %w", method, c.closedErr())
	}
}

func (c *Client) register(id string) (chan wireResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	ch := make(chan wireResponse, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) send(ctx context.Context, req Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.enc.Encode(req)
}

func (c *Client) readLoop() {
	dec := json.NewDecoder(c.conn)
	for {
		var resp wireResponse
		if err := dec.Decode(&resp); err != nil {
			c.fail(fmt.Errorf("%w: %v", ErrClientClosed, err))
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
		close(c.done)
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears down the connection; in-flight calls return ErrClientClosed.
func (c *Client) Close() error {
	c.fail(ErrClientClosed)
	return c.conn.Close()
}
