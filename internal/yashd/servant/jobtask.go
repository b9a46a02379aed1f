package servant

import (
	"context"
	"fmt"
	"io"
	"os"

	"yashd/internal/log"
	"yashd/internal/yashd"
	"yashd/internal/yashd/job"
	"yashd/internal/yashd/parser"
	"yashd/internal/yashd/wire"
)

// logger is an object for logging package events to stdout.
var logger = log.New(os.Stdout, "servant")

// runJobTask implements §4.8: parse the raw line, admit it to the jobs
// table, run it via the executor (blocking if foreground), send a fresh
// prompt, then deregister. Parse errors never touch the jobs table, per
// §8's "no child process is created" invariant — see DESIGN.md for this
// resolution of the spec's admit/parse ordering.
func runJobTask(ctx context.Context, info *ShellInfo, raw string) {
	defer sendPrompt(info.Conn)

	j := parser.Parse(raw)
	if j.Err != nil {
		reportf(info.Conn, "-yash: %s", j.Err)
		return
	}

	if err := info.Jobs.Admit(j); err != nil {
		reportf(info.Conn, "%s", err)
		return
	}

	if err := job.Start(j, info.Conn); err != nil {
		logger.Errorf("start job %d; error: %v", j.JobNumber, err)
		reportf(info.Conn, "-yash: %s", err)
		info.Jobs.Remove(j)
		return
	}

	if j.Background {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := j.Wait(); err != nil {
			logger.Errorf("wait job %d; error: %v", j.JobNumber, err)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		_ = j.Signal(killSignal)
		<-done
	}

	if j.Status() == job.Done {
		info.Jobs.Remove(j)
	}
}

// spawnJobTask launches a job task as its own goroutine, registered in the
// connection's TaskTable so it can be cancelled on teardown.
func spawnJobTask(parentCtx context.Context, info *ShellInfo, raw string) {
	ctx, cancel := context.WithCancel(parentCtx)
	id := info.Tasks.Register(cancel)
	go func() {
		defer cancel()
		defer info.Tasks.Deregister(id)
		runJobTask(ctx, info, raw)
	}()
}

func reportf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func sendPrompt(w io.Writer) {
	_ = wire.WriteRaw(w, []byte(yashd.Prompt))
}
