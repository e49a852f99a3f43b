package syncd

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/statetree/go-statetree/store"
)

const serverName = "syncd/1"

// Spec configures a Server.
type Spec struct {
	Store *store.Store
}

// Server accepts replica sessions against one store.
type Server struct {
	Spec Spec

	listener net.Listener

	sessions   map[string]*Session
	sessionsMu sync.RWMutex
	sessionSeq atomic.Int64

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a server for the given spec.
func New(spec *Spec) (*Server, error) {
	if spec.Store == nil {
		return nil, fmt.Errorf("syncd: no store given")
	}
	return &Server{Spec: *spec, sessions: map[string]*Session{}}, nil
}

// Listen binds the server to addr. Use addr "127.0.0.1:0" to pick a free
// port; Addr reports the bound address.
func (s *Server) Listen(addr string) error {
	if s.listener != nil {
		return fmt.Errorf("syncd: already listening")
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Close. Blocks.
func (s *Server) Serve() error {
	log := s.Spec.Store.Log()
	log.Info("syncd listening", "addr", s.listener.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			log.Error("accept error", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	seq := s.sessionSeq.Add(1)
	sessionID := fmt.Sprintf("tcp-%d", seq)
	session := NewSession(sessionID, conn, s.Spec.Store)

	s.sessionsMu.Lock()
	s.sessions[sessionID] = session
	s.sessionsMu.Unlock()

	session.Run()

	s.sessionsMu.Lock()
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()
}

// Close stops accepting and shuts every session down.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.sessionsMu.RLock()
	for _, session := range s.sessions {
		session.Close()
	}
	s.sessionsMu.RUnlock()
	s.wg.Wait()
	return err
}
