package job

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
)

// execvpErrno is the original yashd's fixed command-error exit status for a
// child whose exec fails. Nothing here exits with it: cmd.Start reports an
// exec failure to the parent before any child runs (see newExecError).
const execvpErrno = 127

// procGroup is the executor-owned handle to a Job's live child process(es).
type procGroup struct {
	pgid     int
	children int
	exited   int
}

// Start forks and execs the Job's process group against conn, the client
// socket whose stdout/stderr the children inherit. Start never blocks on the
// children; callers that need to wait for a foreground job call Wait.
func Start(j *Job, conn net.Conn) error {
	if j.Err != nil {
		return fmt.Errorf("start job with parse error: %w", j.Err)
	}

	sockFile, err := socketFile(conn)
	if err != nil {
		return fmt.Errorf("duplicate client socket: %w", err)
	}
	defer sockFile.Close()

	if j.Piped {
		return startPiped(j, sockFile)
	}
	return startSimple(j, sockFile)
}

func startSimple(j *Job, sock *os.File) error {
	cmd, err := buildCmd(j.Left, nil, sock, true)
	if err != nil {
		j.Err = err
		return err
	}

	if err := cmd.Start(); err != nil {
		j.Err = newExecError(err)
		return j.Err
	}

	j.GroupID = cmd.Process.Pid
	j.proc = &procGroup{pgid: cmd.Process.Pid, children: 1}
	return nil
}

func startPiped(j *Job, sock *os.File) error {
	pr, pw, err := os.Pipe()
	if err != nil {
		j.Err = fmt.Errorf("create pipe: %w", err)
		return j.Err
	}

	left, err := buildCmd(j.Left, nil, pw, true)
	if err != nil {
		pr.Close()
		pw.Close()
		j.Err = err
		return err
	}
	if err := left.Start(); err != nil {
		pr.Close()
		pw.Close()
		j.Err = newExecError(err)
		return j.Err
	}
	leaderPid := left.Process.Pid

	right, err := buildCmd(j.Right, pr, sock, false)
	if err != nil {
		pr.Close()
		pw.Close()
		j.Err = err
		return err
	}
	right.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: leaderPid}
	if err := right.Start(); err != nil {
		pr.Close()
		pw.Close()
		_ = syscall.Kill(-leaderPid, syscall.SIGKILL)
		j.Err = newExecError(err)
		return j.Err
	}

	// Both children have inherited the pipe ends; the parent's copies must
	// be closed so EOF propagates once the left side finishes writing.
	pr.Close()
	pw.Close()

	j.GroupID = leaderPid
	j.proc = &procGroup{pgid: leaderPid, children: 2}
	return nil
}

// buildCmd constructs the exec.Cmd for one side of a (possibly piped) Job.
// stdoutFile is the pre-wired pipe-write or socket endpoint the side's
// stdout/stderr are duplicated onto (§4.3 step 2). stdinFile is non-nil
// only for the right side of a piped job, wired to the pipe's read end; a
// simple or left-side command's stdin is left at Go's default (the null
// device) unless overridden by an explicit redirection. Per §4.4, explicit
// file redirections are applied afterward and override these endpoints.
func buildCmd(side Side, stdinFile, stdoutFile *os.File, leader bool) (*exec.Cmd, error) {
	if len(side.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	cmd := exec.Command(side.Argv[0], side.Argv[1:]...)
	if stdinFile != nil {
		cmd.Stdin = stdinFile
	}
	cmd.Stdout = stdoutFile
	cmd.Stderr = stdoutFile
	if leader {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if side.InPath != "" {
		f, err := os.OpenFile(side.InPath, os.O_RDONLY, 0)
		if err != nil {
			return nil, newOpenError(side.InPath, err)
		}
		cmd.Stdin = f
	}
	if side.OutPath != "" {
		f, err := os.OpenFile(side.OutPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0664)
		if err != nil {
			return nil, newOpenError(side.OutPath, err)
		}
		cmd.Stdout = f
	}
	if side.ErrPath != "" {
		f, err := os.OpenFile(side.ErrPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0664)
		if err != nil {
			return nil, newOpenError(side.ErrPath, err)
		}
		cmd.Stderr = f
	}

	return cmd, nil
}

// newOpenError renders the fixed "open errno <n>: could not open file: <path>"
// message the original yashd emits on a redirection failure. errors.WithStack
// attaches a stack trace for daemon-side diagnosis without altering the
// wire-visible message text.
func newOpenError(path string, err error) error {
	errno := errnoOf(err)
	return errors.WithStack(fmt.Errorf("open errno %d: could not open file: %s", errno, path))
}

// newExecError renders the fixed "execvp() errno: <n>" message the original
// yashd's forked child emits when execvp() fails. In that C implementation
// the message is written by the child itself after a successful fork; Go's
// os/exec reports the equivalent failure to the parent before any child
// exists (fork and exec are not separate steps), so the caller reports this
// error to the client instead.
func newExecError(err error) error {
	return fmt.Errorf("execvp() errno: %d", errnoOf(err))
}

func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(syscall.EIO)
}

// socketFile duplicates the file descriptor backing conn so it may be
// handed to a child process as Stdin/Stdout/Stderr, the Go analogue of
// dup2'ing the socket onto the child's standard streams.
func socketFile(conn net.Conn) (*os.File, error) {
	fc, ok := conn.(fileConn)
	if !ok {
		return nil, fmt.Errorf("connection does not support File()")
	}
	return fc.File()
}
