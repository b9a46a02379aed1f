package job

import (
	"fmt"
	"syscall"

	"yashd/internal/errors"
)

// Event describes one reaped transition observed on a process group.
type Event int

const (
	// EventNone indicates no pending transition was observed (non-blocking
	// poll only).
	EventNone Event = iota
	// EventExited indicates one child exited or was terminated by a signal.
	EventExited
	// EventStopped indicates the group was suspended by a signal.
	EventStopped
	// EventContinued indicates a previously stopped group resumed.
	EventContinued
)

// Wait blocks until the Job's process group has either fully exited
// (ChildCount terminations observed) or stopped, per §4.3: "if foreground,
// return only after the whole process group has exited or stopped." Wait
// must only be called for a Job that was started successfully.
func (j *Job) Wait() error {
	j.mu.Lock()
	proc := j.proc
	j.mu.Unlock()
	if proc == nil {
		return fmt.Errorf("wait on job that was never started")
	}

	for proc.exited < proc.children {
		ev, _, err := reap(proc.pgid, true)
		if err != nil {
			werr := fmt.Errorf("wait for children: %w", err)
			j.mu.Lock()
			j.Err = werr
			j.mu.Unlock()
			return werr
		}
		switch ev {
		case EventExited:
			proc.exited++
			if proc.exited >= proc.children {
				j.setStatus(Done)
				return nil
			}
		case EventStopped:
			j.setStatus(Stopped)
			return nil
		}
	}
	j.setStatus(Done)
	return nil
}

// Poll performs one non-blocking check for a pending status transition on
// the Job's group, applying the table from §4.5:
//
//	exited              -> Done
//	terminated by signal -> Done
//	stopped by signal    -> Stopped
//	continued by signal  -> Running
//
// Poll returns true if a transition to Done occurred (the caller should
// remove the Job from its table).
func (j *Job) Poll() (done bool, err error) {
	j.mu.Lock()
	proc := j.proc
	j.mu.Unlock()
	if proc == nil {
		return false, nil
	}

	for {
		ev, observed, err := reap(proc.pgid, false)
		if err != nil {
			return false, fmt.Errorf("poll job: %w", err)
		}
		if !observed {
			return j.Status() == Done, nil
		}
		switch ev {
		case EventExited:
			proc.exited++
			if proc.exited >= proc.children {
				j.setStatus(Done)
				return true, nil
			}
		case EventStopped:
			j.setStatus(Stopped)
		case EventContinued:
			j.setStatus(Running)
		}
	}
}

// Signal delivers sig to the Job's process group, per §9: "Signal delivery
// via kill(group_id, …) is the contract; do not invent per-pid handling."
func (j *Job) Signal(sig syscall.Signal) error {
	j.mu.Lock()
	pgid := j.GroupID
	j.mu.Unlock()
	if pgid == 0 {
		return fmt.Errorf("signal job with no process group")
	}
	if err := syscall.Kill(-pgid, sig); err != nil {
		return fmt.Errorf("kill process group %d: %w", pgid, err)
	}
	return nil
}

// reap performs one syscall.Wait4 against the given process group, blocking
// if block is true, returning immediately (WNOHANG) otherwise. observed is
// false only in the non-blocking case when nothing had changed.
func reap(pgid int, block bool) (event Event, observed bool, err error) {
	var ws syscall.WaitStatus
	options := syscall.WUNTRACED | syscall.WCONTINUED
	if !block {
		options |= syscall.WNOHANG
	}

	pid, err := syscall.Wait4(-pgid, &ws, options, nil)
	if err == syscall.ECHILD {
		// No more tracked children in this group; treat as a terminal exit
		// so callers stop polling it.
		return EventExited, true, nil
	}
	if err != nil {
		return EventNone, false, errors.Wrap(err)
	}
	if pid == 0 {
		return EventNone, false, nil
	}

	switch {
	case ws.Exited() || ws.Signaled():
		return EventExited, true, nil
	case ws.Stopped():
		return EventStopped, true, nil
	case ws.Continued():
		return EventContinued, true, nil
	default:
		return EventNone, true, nil
	}
}
