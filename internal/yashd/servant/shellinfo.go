// Package servant implements the per-connection servant task (§4.7) and its
// per-command job tasks (§4.8): the concurrency fabric that sits between the
// acceptor and the job executor.
package servant

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	"yashd/internal/yashd/jobstable"
	"yashd/internal/yashd/yashlog"
)

// ShellInfo is the per-connection state described in §3: the socket, the
// jobs table, and the job-task table, plus the servant's own arguments.
type ShellInfo struct {
	Conn  net.Conn
	Addr  string
	Jobs  *jobstable.Table
	Tasks *TaskTable
	// Audit renders §6's fixed per-client log line format to the daemon's
	// log file, distinct from the diagnostic stdout logger.
	Audit *yashlog.Logger
}

// NewShellInfo creates a ShellInfo for a freshly accepted connection. audit
// is the §6-formatted log line writer tagged with this connection's
// address.
func NewShellInfo(conn net.Conn, addr string, audit *yashlog.Logger) *ShellInfo {
	return &ShellInfo{
		Conn:  conn,
		Addr:  addr,
		Jobs:  jobstable.New(),
		Tasks: NewTaskTable(),
		Audit: audit,
	}
}

// TaskTable is the per-connection JobTaskTable of §3: an unordered
// collection of active job-task cancel handles, protected by a
// per-connection mutex, keyed by a uuid.UUID handle rather than a
// sequential counter.
type TaskTable struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]context.CancelFunc
}

// NewTaskTable creates an empty TaskTable.
func NewTaskTable() *TaskTable {
	return &TaskTable{tasks: make(map[uuid.UUID]context.CancelFunc)}
}

// Register adds a new job task's cancel func, returning a handle to
// deregister it on completion.
func (t *TaskTable) Register(cancel context.CancelFunc) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := uuid.New()
	t.tasks[id] = cancel
	return id
}

// Deregister removes the job task identified by id.
func (t *TaskTable) Deregister(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, id)
}

// CancelAll flips every registered job task's cancellation, used on
// disconnect, CTL d, or process shutdown (§5: "Disconnect, CTL d, or
// process shutdown all flip the relevant run flag.").
func (t *TaskTable) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cancel := range t.tasks {
		cancel()
	}
}
