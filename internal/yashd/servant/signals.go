package servant

import "syscall"

// killSignal is the terminal-kill signal a job task sends to the foreground
// job it is waiting on when the task is cancelled (disconnect, CTL d, or
// shutdown). Background jobs are not signalled.
const killSignal = syscall.SIGKILL

// interruptSignal and suspendSignal are delivered to the foreground job's
// process group for CTL c and CTL z respectively (§4.7, §9).
const (
	interruptSignal = syscall.SIGINT
	suspendSignal   = syscall.SIGTSTP
)
