// Package acceptor implements §4.9: the daemon's accept loop and the
// process-wide ServantTable of live connections.
package acceptor

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"

	"yashd/internal/errors"
	"yashd/internal/log"
	"yashd/internal/yashd"
	"yashd/internal/yashd/servant"
	"yashd/internal/yashd/yashlog"
)

// logger is an object for logging package events to stdout.
var logger = log.New(os.Stdout, "acceptor")

// entry is one live connection's ServantTable slot: its cancel handle and
// client socket, per §3's "task handle + run bit + client socket."
type entry struct {
	conn   net.Conn
	cancel context.CancelFunc
}

// ServantTable is the process-wide bounded collection of active servant
// connections described in §3: up to MaxClients entries, protected by a
// single mutex. Entries are keyed by a uuid.UUID rather than a sequential
// counter, the same shape as servant.TaskTable.
type ServantTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// NewServantTable creates an empty ServantTable.
func NewServantTable() *ServantTable {
	return &ServantTable{entries: make(map[uuid.UUID]*entry)}
}

// Count returns the number of live connections.
func (t *ServantTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// reserve adds a new, not-yet-started entry if the table has room, per
// §4.9's admission check ahead of spawning the servant task. It returns
// ok=false, making no change, once MaxClients is reached.
func (t *ServantTable) reserve(conn net.Conn, cancel context.CancelFunc) (id uuid.UUID, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) >= yashd.MaxClients {
		return uuid.UUID{}, false
	}
	id = uuid.New()
	t.entries[id] = &entry{conn: conn, cancel: cancel}
	return id, true
}

func (t *ServantTable) release(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// ShutdownAll flips the run bit false on every live connection (closing its
// socket and cancelling its servant context), per §5: "process shutdown
// flips every connection's run flag."
func (t *ServantTable) ShutdownAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		e.cancel()
		e.conn.Close()
	}
}

// Acceptor owns the listening socket and the ServantTable of connections it
// has spawned servant tasks for.
type Acceptor struct {
	ln       net.Listener
	servants *ServantTable
	audit    *yashlog.Logger
}

// Listen opens the daemon's listening socket on port. Go's net package
// does not expose the listen() backlog parameter portably, so the fixed
// AcceptBacklog of §6 is not independently configurable here; the kernel's
// default backlog applies instead (see DESIGN.md). logWriter receives the
// §6-formatted daemon/per-client log lines (normally the daemon's log
// file); the package-level stdout logger remains for ambient diagnostics.
func Listen(port int, logWriter io.Writer) (*Acceptor, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	return &Acceptor{
		ln:       ln,
		servants: NewServantTable(),
		audit:    yashlog.New(logWriter, "daemon"),
	}, nil
}

// Addr returns the listener's bound address.
func (a *Acceptor) Addr() net.Addr { return a.ln.Addr() }

// Close stops accepting new connections and tears down every live servant.
func (a *Acceptor) Close() error {
	a.servants.ShutdownAll()
	return errors.Wrap(a.ln.Close())
}

// Serve runs the accept loop of §4.9 until ctx is cancelled or the listener
// is closed: accept a connection, reserve a ServantTable slot (rejecting
// and closing the socket if the table is full), then spawn its servant
// task. Serve returns nil when ctx is cancelled; any other accept failure
// is returned to the caller.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.ln.Close()
	}()

	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}

		a.spawn(ctx, conn)
	}
}

func (a *Acceptor) spawn(parentCtx context.Context, conn net.Conn) {
	addr := conn.RemoteAddr().String()

	sctx, cancel := context.WithCancel(parentCtx)
	id, ok := a.servants.reserve(conn, cancel)
	if !ok {
		logger.Warnf("servant table full; rejecting connection from %s", addr)
		cancel()
		conn.Close()
		return
	}

	logger.Infof("accepted connection; addr: %s", addr)
	a.audit.Infof("accepted connection from %s", addr)
	info := servant.NewShellInfo(conn, addr, yashlog.New(a.audit.Writer(), addr))

	go func() {
		defer cancel()
		defer a.servants.release(id)
		servant.Run(sctx, info)
		logger.Infof("servant finished; addr: %s", addr)
	}()
}
