package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client connects to the nnsearch daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Rank asks the daemon to rank query with the named strategy.
func (c *Client) Rank(query, strategy string, limit int) (*RankResult, error) {
	var result RankResult
	err := c.invoke(Request{
		ID:     "1",
		Method: MethodRank,
		Params: RankParams{Query: query, Strategy: strategy, Limit: limit},
	}, &result, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Complete asks for catalog names starting with prefix.
func (c *Client) Complete(prefix string, limit int) (*CompleteResult, error) {
	var result CompleteResult
	err := c.invoke(Request{
		ID:     "1",
		Method: MethodComplete,
		Params: CompleteParams{Prefix: prefix, Limit: limit},
	}, &result, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.invoke(Request{ID: "1", Method: MethodHealth}, &result, 5*time.Second); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the daemon to rebuild its catalog and engine, with an extended
// timeout since a scorer may be reopened.
func (c *Client) Reload() (*ReloadResult, error) {
	var result ReloadResult
	if err := c.invoke(Request{ID: "1", Method: MethodReload}, &result, 60*time.Second); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	return c.invoke(Request{ID: "1", Method: MethodShutdown}, nil, 5*time.Second)
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// invoke performs one request and decodes the result into dst (nil skips).
func (c *Client) invoke(req Request, dst interface{}, timeout time.Duration) error {
	resp, err := c.callWithTimeout(req, timeout)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err := decodeParams(resp.Result, dst); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
