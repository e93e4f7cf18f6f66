// Package socket implements a JSON-over-Unix-socket protocol for the nnsearch
// daemon. The protocol uses newline-delimited JSON: each message is one JSON
// object + \n.
package socket

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
)

// SocketPath returns the Unix socket path for a given catalog file.
// Format: /tmp/nnsearch-{first12hex}.sock
func SocketPath(catalogPath string) string {
	abs, err := filepath.Abs(catalogPath)
	if err != nil {
		abs = catalogPath
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/nnsearch-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodRank     = "rank"
	MethodComplete = "complete"
	MethodHealth   = "health"
	MethodReload   = "reload"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// RankParams is the params for a rank request. An empty strategy means the
// daemon's default; limit 0 keeps the strategy's own limit.
type RankParams struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// RankResult is the result of a rank request.
type RankResult struct {
	Query      string           `json:"query"`
	Strategy   string           `json:"strategy"`
	Candidates []rank.Candidate `json:"candidates"`
	Elapsed    string           `json:"elapsed"`
}

// CompleteParams is the params for a complete request.
type CompleteParams struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit,omitempty"`
}

// CompleteResult is the result of a complete request.
type CompleteResult struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status      string   `json:"status"`
	CatalogSize int      `json:"catalog_size"`
	Restricted  bool     `json:"restricted"`
	Scorer      string   `json:"scorer,omitempty"`
	Strategies  []string `json:"strategies"`
	Reloads     int      `json:"reloads"`
	Uptime      string   `json:"uptime"`
}

// ReloadResult is the result of a reload request.
type ReloadResult struct {
	CatalogSize int    `json:"catalog_size"`
	Elapsed     string `json:"elapsed"`
}

// decodeParams re-marshals a generically decoded params value into dst.
func decodeParams(params interface{}, dst interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
