package parser_test

import (
	"testing"

	"yashd/internal/yashd/job"
	"yashd/internal/yashd/parser"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		raw    string
		expErr string
		check  func(t *testing.T, j *job.Job)
	}{
		"simple": {
			raw: "echo hello",
			check: func(t *testing.T, j *job.Job) {
				assertArgv(t, j.Left, "echo", "hello")
				if j.Piped || j.Background {
					t.Fatalf("expected no pipe/background")
				}
			},
		},
		"piped": {
			raw: "ls | wc -l",
			check: func(t *testing.T, j *job.Job) {
				assertArgv(t, j.Left, "ls")
				assertArgv(t, j.Right, "wc", "-l")
				if !j.Piped {
					t.Fatalf("expected piped")
				}
			},
		},
		"background": {
			raw: "sleep 30 &",
			check: func(t *testing.T, j *job.Job) {
				assertArgv(t, j.Left, "sleep", "30")
				if !j.Background {
					t.Fatalf("expected background")
				}
			},
		},
		"redirection": {
			raw: "cat < in.txt > out.txt 2> err.txt",
			check: func(t *testing.T, j *job.Job) {
				if j.Left.InPath != "in.txt" || j.Left.OutPath != "out.txt" || j.Left.ErrPath != "err.txt" {
					t.Fatalf("unexpected redirection: %+v", j.Left)
				}
			},
		},
		"leading redirect is syntax error": {
			raw:    "> out",
			expErr: "syntax error: command should not start with >",
		},
		"trailing redirect operator is syntax error": {
			raw:    "cat <",
			expErr: "syntax error: command should not end with <",
		},
		"adjacent metacharacters": {
			raw:    "cat < >",
			expErr: "syntax error: near token >",
		},
		"double pipe": {
			raw:    "ls | wc | cat",
			expErr: "syntax error: near token |",
		},
		"ampersand not at end": {
			raw:    "echo & hello",
			expErr: "syntax error: & should be the last token of the command",
		},
		"isolated ampersand fails first token rule": {
			raw:    "&",
			expErr: "syntax error: command should not start with &",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			j := parser.Parse(test.raw)
			if test.expErr != "" {
				if j.Err == nil || j.Err.Error() != test.expErr {
					t.Fatalf("unexpected error; actual: %v, expected: %s", j.Err, test.expErr)
				}
				return
			}
			if j.Err != nil {
				t.Fatalf("unexpected error: %v", j.Err)
			}
			test.check(t, j)
		})
	}
}

func TestParsePipedRightNeverEmptyWhenPiped(t *testing.T) {
	j := parser.Parse("ls | wc -l")
	if j.Err != nil {
		t.Fatalf("unexpected error: %v", j.Err)
	}
	if j.Piped && len(j.Right.Argv) == 0 {
		t.Fatalf("expected non-empty right argv for piped job")
	}
}

func TestParseNotPipedRightEmpty(t *testing.T) {
	j := parser.Parse("echo hello")
	if j.Piped {
		t.Fatalf("expected not piped")
	}
	if len(j.Right.Argv) != 0 || j.Right.InPath != "" || j.Right.OutPath != "" || j.Right.ErrPath != "" {
		t.Fatalf("expected empty right side, got %+v", j.Right)
	}
}

func assertArgv(t *testing.T, s job.Side, want ...string) {
	t.Helper()
	if len(s.Argv) != len(want) {
		t.Fatalf("unexpected argv length; actual: %v, expected: %v", s.Argv, want)
	}
	for i := range want {
		if s.Argv[i] != want[i] {
			t.Fatalf("unexpected argv; actual: %v, expected: %v", s.Argv, want)
		}
	}
}
