package job_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"yashd/internal/yashd/job"
)

// localPipe creates a connected TCP loopback pair so tests can exercise
// job.Start against a real *os.File-backed net.Conn, the same way a client
// socket behaves.
func localPipe(t *testing.T) (server, client net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	client, err = net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatalf("accept timed out")
	}

	return server, client
}

func TestStartSimpleCommand(t *testing.T) {
	server, client := localPipe(t)
	defer server.Close()
	defer client.Close()

	j := &job.Job{Left: job.Side{Argv: []string{"echo", "hello"}}}
	if err := job.Start(j, server); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.GroupID == 0 {
		t.Fatalf("expected non-zero group id")
	}

	if err := j.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if j.Status() != job.Done {
		t.Fatalf("unexpected status: %v", j.Status())
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if strings.TrimSpace(line) != "hello" {
		t.Fatalf("unexpected output: %q", line)
	}
}

func TestStartExecFailureReportsErrno(t *testing.T) {
	server, client := localPipe(t)
	defer server.Close()
	defer client.Close()

	j := &job.Job{Left: job.Side{Argv: []string{"/no/such/command-xyz"}}}
	err := job.Start(j, server)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "execvp() errno") {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.GroupID != 0 {
		t.Fatalf("expected no group id on exec failure")
	}
}

func TestStartRedirectionOpenFailure(t *testing.T) {
	server, client := localPipe(t)
	defer server.Close()
	defer client.Close()

	j := &job.Job{Left: job.Side{
		Argv:   []string{"cat"},
		InPath: "/tmp/does-not-exist-yashd-test",
	}}
	err := job.Start(j, server)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "could not open file: /tmp/does-not-exist-yashd-test") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPipedCommandChildCount(t *testing.T) {
	j := &job.Job{
		Piped: true,
		Left:  job.Side{Argv: []string{"ls"}},
		Right: job.Side{Argv: []string{"wc", "-l"}},
	}
	if j.ChildCount() != 2 {
		t.Fatalf("expected 2 children for piped job, got %d", j.ChildCount())
	}
}

func TestStartPipedCommandRunsBothSides(t *testing.T) {
	server, client := localPipe(t)
	defer server.Close()
	defer client.Close()

	j := &job.Job{
		Piped: true,
		Left:  job.Side{Argv: []string{"printf", "a\\nb\\nc\\n"}},
		Right: job.Side{Argv: []string{"wc", "-l"}},
	}
	if err := job.Start(j, server); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if j.Status() != job.Done {
		t.Fatalf("unexpected status: %v", j.Status())
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if strings.TrimSpace(line) != "3" {
		t.Fatalf("unexpected output: %q", line)
	}
}

func TestReportLineMarksCurrent(t *testing.T) {
	j := &job.Job{JobNumber: 1, Left: job.Side{Argv: []string{"sleep", "30"}}}
	line := j.ReportLine(true)
	if line != "[1]+ Running\tsleep 30 " {
		t.Fatalf("unexpected report line: %q", line)
	}

	line = j.ReportLine(false)
	if line != "[1]- Running\tsleep 30 " {
		t.Fatalf("unexpected report line: %q", line)
	}
}
