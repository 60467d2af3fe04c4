// Package ipc serves a line-delimited JSON control protocol on a unix socket.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

type Request struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Status   string    `json:"status,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Since    time.Time `json:"since,omitzero"`
	LastUser string    `json:"last_user,omitempty"`
	LastBot  string    `json:"last_bot,omitempty"`
}

type Handler func(Request) Reply

type Server struct {
	ln      net.Listener
	path    string
	handler Handler
	log     *log.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

const ioTimeout = 5 * time.Second

// Listen binds path, replacing a stale socket left by a previous run.
func Listen(path string, handler Handler, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return &Server{ln: ln, path: path, handler: handler, log: logger}, nil
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Warn("Accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ln.Close()
		os.Remove(s.path)
	})
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioTimeout))

	var req Request
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&req); err != nil {
		s.log.Debug("Bad control request", "err", err)
		json.NewEncoder(conn).Encode(Reply{Error: "bad request"})
		return
	}

	s.log.Debug("Control request", "cmd", req.Cmd)
	if err := json.NewEncoder(conn).Encode(s.handler(req)); err != nil {
		s.log.Debug("Control reply failed", "err", err)
	}
}

// Send issues one command and waits for its reply.
func Send(ctx context.Context, path, cmd string) (Reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(ioTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	if err := json.NewEncoder(conn).Encode(Request{Cmd: cmd}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var rep Reply
	if err := json.NewDecoder(conn).Decode(&rep); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !rep.OK && rep.Error != "" {
		return rep, errors.New(rep.Error)
	}
	return rep, nil
}
