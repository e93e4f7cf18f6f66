package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
)

// Service is what the daemon serves. Thread safety is the implementor's
// responsibility: handlers run on one goroutine per connection.
type Service interface {
	Rank(query, strategy string, limit int) ([]rank.Candidate, string, error)
	Complete(prefix string, limit int) []string
	Health() HealthResult
	Reload() (ReloadResult, error)
}

// Server is the daemon that listens on a Unix socket and serves rank requests.
type Server struct {
	svc      Service
	listener net.Listener
	sockPath string
	started  time.Time

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by svc.
func NewServer(svc Service, sockPath string) *Server {
	return &Server{
		svc:        svc,
		sockPath:   sockPath,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. A socket file nobody answers on
// is stale and gets removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for open connections and removes the
// socket file. A server that never started leaves the path alone.
// Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener == nil {
			return
		}
		s.listener.Close()
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

// Started returns the time Start succeeded.
func (s *Server) Started() time.Time {
	return s.started
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodRank:
		return s.handleRank(req)
	case MethodComplete:
		return s.handleComplete(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodReload:
		return s.handleReload(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleRank(req Request) Response {
	var params RankParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid rank params"}
	}

	start := time.Now()
	cands, strategy, err := s.svc.Rank(params.Query, params.Strategy, params.Limit)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	if cands == nil {
		cands = []rank.Candidate{}
	}

	return Response{
		ID: req.ID,
		Result: RankResult{
			Query:      params.Query,
			Strategy:   strategy,
			Candidates: cands,
			Elapsed:    time.Since(start).String(),
		},
	}
}

func (s *Server) handleComplete(req Request) Response {
	var params CompleteParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid complete params"}
	}
	names := s.svc.Complete(params.Prefix, params.Limit)
	if names == nil {
		names = []string{}
	}
	return Response{ID: req.ID, Result: CompleteResult{Names: names, Count: len(names)}}
}

func (s *Server) handleHealth(req Request) Response {
	h := s.svc.Health()
	h.Uptime = time.Since(s.started).Round(time.Second).String()
	return Response{ID: req.ID, Result: h}
}

func (s *Server) handleReload(req Request) Response {
	result, err := s.svc.Reload()
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
