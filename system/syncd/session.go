package syncd

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/store"
)

// Session handles one replica connection: it parses requests, dispatches
// against the store, and forwards watch events. Responses and events share
// one outgoing channel so writes never interleave.
type Session struct {
	ID    string
	conn  io.ReadWriteCloser
	store *store.Store
	log   *slog.Logger

	outgoing chan *Response
	done     chan struct{}

	unwatchMu sync.Mutex
	unwatch   func()

	closeOnce sync.Once
}

// NewSession wraps a connection. Run drives it.
func NewSession(id string, conn io.ReadWriteCloser, st *store.Store) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		store:    st,
		log:      st.Log().With("session", id),
		outgoing: make(chan *Response, 100),
		done:     make(chan struct{}),
	}
}

// Run reads requests until the connection drops, then tears down.
func (s *Session) Run() {
	go s.writeLoop()
	defer s.Close()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		req := &Request{}
		if err := json.Unmarshal(line, req); err != nil {
			s.send(&Response{Error: "malformed request: " + err.Error()})
			continue
		}
		s.dispatch(req)
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("session read ended", "error", err)
	}
}

func (s *Session) dispatch(req *Request) {
	switch req.Op {
	case OpHello:
		s.send(&Response{ID: req.ID, OK: true, Server: serverName})

	case OpSnapshot:
		s.send(&Response{ID: req.ID, OK: true, Snapshot: s.store.Snapshot()})

	case OpPatch:
		if err := s.store.ApplyPatches(req.Patches); err != nil {
			s.send(&Response{ID: req.ID, Error: err.Error()})
			return
		}
		s.send(&Response{ID: req.ID, OK: true})

	case OpWatch:
		s.unwatchMu.Lock()
		if s.unwatch == nil {
			s.unwatch = s.store.OnPatch(func(p patch.Patch) {
				s.send(&Response{OK: true, Event: &p})
			})
		}
		s.unwatchMu.Unlock()
		s.send(&Response{ID: req.ID, OK: true})

	case OpUnwatch:
		s.stopWatch()
		s.send(&Response{ID: req.ID, OK: true})

	default:
		s.send(&Response{ID: req.ID, Error: "unknown op " + req.Op})
	}
}

func (s *Session) send(resp *Response) {
	select {
	case s.outgoing <- resp:
	case <-s.done:
	}
}

func (s *Session) writeLoop() {
	enc := json.NewEncoder(s.conn)
	for {
		select {
		case resp := <-s.outgoing:
			if err := enc.Encode(resp); err != nil {
				s.log.Debug("session write failed", "error", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) stopWatch() {
	s.unwatchMu.Lock()
	defer s.unwatchMu.Unlock()
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}
}

// Close shuts the session down; safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stopWatch()
		close(s.done)
		s.conn.Close()
		s.log.Debug("session closed")
	})
}
