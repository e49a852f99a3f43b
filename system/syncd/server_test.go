package syncd

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/store"
	"github.com/statetree/go-statetree/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	elem := types.Model("Todo",
		types.Field{Name: "id", Type: types.Identifier},
		types.Field{Name: "task", Type: types.String},
	)
	st, err := store.New(&store.Spec{
		Type: types.MapOf(elem),
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	srv, err := New(&Spec{Store: st})
	require.NoError(t, err)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv
}

// client is a minimal replica endpoint: requests go out as one JSON line,
// responses and events come back on separate channels.
type client struct {
	conn   net.Conn
	enc    *json.Encoder
	nextID int64

	replies chan *Response
	events  chan *Response
}

func dialClient(t *testing.T, srv *Server) *client {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	c := &client{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		replies: make(chan *Response, 16),
		events:  make(chan *Response, 16),
	}
	go func() {
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			resp := &Response{}
			if err := json.Unmarshal(scanner.Bytes(), resp); err != nil {
				return
			}
			if resp.Event != nil {
				c.events <- resp
			} else {
				c.replies <- resp
			}
		}
	}()
	return c
}

func (c *client) call(t *testing.T, op string, patches []patch.Patch) *Response {
	t.Helper()
	c.nextID++
	require.NoError(t, c.enc.Encode(&Request{ID: c.nextID, Op: op, Patches: patches}))
	select {
	case resp := <-c.replies:
		require.Equal(t, c.nextID, resp.ID, "reply out of order")
		return resp
	case <-time.After(5 * time.Second):
		t.Fatalf("no reply to %s", op)
		return nil
	}
}

func (c *client) event(t *testing.T) *Response {
	t.Helper()
	select {
	case resp := <-c.events:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return nil
	}
}

func TestHello(t *testing.T) {
	srv := testServer(t)
	c := dialClient(t, srv)
	resp := c.call(t, OpHello, nil)
	assert.True(t, resp.OK)
	assert.Equal(t, serverName, resp.Server)
}

func TestPatchAndSnapshot(t *testing.T) {
	srv := testServer(t)
	c := dialClient(t, srv)

	resp := c.call(t, OpPatch, []patch.Patch{{
		Op:    patch.OpAdd,
		Path:  "1",
		Value: map[string]any{"id": "1", "task": "one"},
	}})
	require.True(t, resp.OK, "patch failed: %s", resp.Error)

	resp = c.call(t, OpSnapshot, nil)
	require.True(t, resp.OK)
	want := map[string]any{
		"1": map[string]any{"id": "1", "task": "one"},
	}
	assert.Equal(t, want, resp.Snapshot)
}

func TestPatchRejected(t *testing.T) {
	srv := testServer(t)
	c := dialClient(t, srv)

	resp := c.call(t, OpPatch, []patch.Patch{{
		Op:    patch.OpAdd,
		Path:  "1",
		Value: map[string]any{"task": 5},
	}})
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)

	resp = c.call(t, OpSnapshot, nil)
	require.True(t, resp.OK)
	assert.Equal(t, map[string]any{}, resp.Snapshot)
}

func TestWatch(t *testing.T) {
	srv := testServer(t)
	watcher := dialClient(t, srv)
	writer := dialClient(t, srv)

	require.True(t, watcher.call(t, OpWatch, nil).OK)

	resp := writer.call(t, OpPatch, []patch.Patch{{
		Op:    patch.OpAdd,
		Path:  "1",
		Value: map[string]any{"id": "1", "task": "one"},
	}})
	require.True(t, resp.OK, "patch failed: %s", resp.Error)

	ev := watcher.event(t)
	assert.Equal(t, patch.OpAdd, ev.Event.Op)
	assert.Equal(t, "1", ev.Event.Path)

	require.True(t, watcher.call(t, OpUnwatch, nil).OK)

	resp = writer.call(t, OpPatch, []patch.Patch{{
		Op:    patch.OpReplace,
		Path:  "1",
		Value: map[string]any{"id": "1", "task": "redo"},
	}})
	require.True(t, resp.OK)
	select {
	case ev := <-watcher.events:
		t.Fatalf("event after unwatch: %s %q", ev.Event.Op, ev.Event.Path)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnknownOp(t *testing.T) {
	srv := testServer(t)
	c := dialClient(t, srv)
	resp := c.call(t, "bogus", nil)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown op")
}

// A replica that pulls a snapshot and then watches reconstructs the live
// document from the event stream alone.
func TestReplicaConvergence(t *testing.T) {
	srv := testServer(t)
	replica := dialClient(t, srv)
	writer := dialClient(t, srv)

	resp := replica.call(t, OpSnapshot, nil)
	require.True(t, resp.OK)
	doc := resp.Snapshot
	require.True(t, replica.call(t, OpWatch, nil).OK)

	edits := [][]patch.Patch{
		{{Op: patch.OpAdd, Path: "1", Value: map[string]any{"id": "1", "task": "one"}}},
		{{Op: patch.OpAdd, Path: "2", Value: map[string]any{"id": "2", "task": "two"}}},
		{{Op: patch.OpReplace, Path: "1", Value: map[string]any{"id": "1", "task": "redo"}}},
		{{Op: patch.OpRemove, Path: "2"}},
	}
	for _, batch := range edits {
		require.True(t, writer.call(t, OpPatch, batch).OK)
	}

	var err error
	for range edits {
		ev := replica.event(t)
		doc, err = patch.Apply(doc, []patch.Patch{*ev.Event})
		require.NoError(t, err)
	}

	resp = replica.call(t, OpSnapshot, nil)
	require.True(t, resp.OK)
	assert.Equal(t, resp.Snapshot, doc)
}
