package servant

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"yashd/internal/yashd/wire"
)

// pollTimeout is the read deadline the servant loop applies between
// cancellation checks, per §4.7/§5: "the servant poll loop times out every
// 500 ms to recheck its cancellation bit."
const pollTimeout = 500 * time.Millisecond

// Run is the per-connection servant task of §4.7. It owns conn for its
// whole lifetime, greets the client with a prompt, then dispatches CMD and
// CTL messages until the peer disconnects, CTL d is received, or ctx is
// cancelled (process shutdown flipping the servant's run flag, per §5).
func Run(ctx context.Context, info *ShellInfo) {
	defer info.Tasks.CancelAll()
	defer info.Conn.Close()

	info.Audit.Infof("connected")
	defer info.Audit.Infof("disconnected")

	sendPrompt(info.Conn)

	r := wire.NewReader(info.Conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = info.Conn.SetReadDeadline(time.Now().Add(pollTimeout))
		payload, err := r.ReadMessage()
		if isTimeout(err) {
			continue
		}
		if errors.Is(err, io.EOF) {
			logger.Infof("client disconnected; addr: %s", info.Addr)
			return
		}
		if err != nil {
			logger.Errorf("read message; addr: %s, error: %v", info.Addr, err)
			return
		}

		msg, err := wire.Parse(payload)
		if err != nil {
			// Malformed message: silently dropped, servant continues.
			continue
		}

		if !dispatch(ctx, info, msg) {
			return
		}
	}
}

// dispatch handles one decoded message. It returns false if the servant
// should tear down (CTL d).
func dispatch(ctx context.Context, info *ShellInfo, msg wire.Message) bool {
	switch msg.Type {
	case wire.Cmd:
		handleCmd(ctx, info, msg.Arg)
		return true
	case wire.Ctl:
		return handleCtl(info, msg.Arg)
	default:
		return true
	}
}

func handleCmd(ctx context.Context, info *ShellInfo, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	// The "refresh the stdin pipe" step the reference implementation
	// performs here has no downstream consumer in this system (§9); it is
	// intentionally omitted rather than wired to dead code.

	trimmed := strings.TrimSpace(line)
	if isBuiltin(trimmed) {
		runBuiltin(info, trimmed)
		sendPrompt(info.Conn)
		return
	}

	spawnJobTask(ctx, info, line)
}

// handleCtl handles a CTL c/z/d directive. It returns false only for CTL d,
// signaling the servant to tear down.
func handleCtl(info *ShellInfo, arg string) bool {
	switch arg {
	case "c":
		signalForeground(info, interruptSignal)
		sendPrompt(info.Conn)
	case "z":
		signalForeground(info, suspendSignal)
		sendPrompt(info.Conn)
	case "d":
		logger.Infof("client requested teardown; addr: %s", info.Addr)
		return false
	}
	return true
}

// signalForeground delivers sig to the newest non-Done, non-background
// job's process group, per §4.7/§9. If no such job exists, it logs and
// continues — the delivery is a best-effort, Unix-accepted race per §5.
func signalForeground(info *ShellInfo, sig syscall.Signal) {
	j, ok := info.Jobs.Foreground()
	if !ok {
		logger.Infof("no foreground job to signal; addr: %s", info.Addr)
		return
	}
	if err := j.Signal(sig); err != nil {
		logger.Errorf("signal foreground job %d; error: %v", j.JobNumber, err)
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
