// Package parser tokenizes and validates a raw yashd command line into a
// job.Job, per §4.2 of the shell engine spec.
package parser

import (
	"fmt"
	"strings"

	"yashd/internal/yashd"
	"yashd/internal/yashd/job"
)

// side identifies which half of a (possibly piped) command a token belongs
// to.
type side int

const (
	sideLeft side = iota
	sideRight
)

// Parse tokenizes raw and validates it into a job.Job. Parse is a total
// function: the returned Job either has Err == nil and fully populated
// Left/Right/Piped/Background fields, or has Err set and nothing else is
// trustworthy (per §8, "Parser is a total function").
func Parse(raw string) *job.Job {
	raw = strings.TrimRight(raw, "\n")

	j := &job.Job{Raw: raw}

	if len(raw) > yashd.MaxCmdLen {
		j.Err = fmt.Errorf("syntax error: command exceeds max length %d", yashd.MaxCmdLen)
		return j
	}

	tokens := strings.Fields(raw)
	if len(tokens) > yashd.MaxTokens {
		j.Err = fmt.Errorf("syntax error: command exceeds max tokens %d", yashd.MaxTokens)
		return j
	}
	for _, tok := range tokens {
		if len(tok) > yashd.MaxTokenLen {
			j.Err = fmt.Errorf("syntax error: token exceeds max length %d", yashd.MaxTokenLen)
			return j
		}
	}
	j.Tokens = tokens

	if len(tokens) == 0 {
		return j
	}

	if err := validate(tokens); err != nil {
		j.Err = err
		return j
	}

	cur := sideLeft
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		switch tok {
		case "<":
			setPath(j, cur, "in", tokens[i+1])
			i += 2
		case ">":
			setPath(j, cur, "out", tokens[i+1])
			i += 2
		case "2>":
			setPath(j, cur, "err", tokens[i+1])
			i += 2
		case "|":
			j.Piped = true
			cur = sideRight
			i++
		case "&":
			j.Background = true
			i++
		default:
			appendArgv(j, cur, tok)
			i++
		}
	}

	return j
}

func setPath(j *job.Job, s side, which, path string) {
	switch {
	case s == sideLeft && which == "in":
		j.Left.InPath = path
	case s == sideLeft && which == "out":
		j.Left.OutPath = path
	case s == sideLeft && which == "err":
		j.Left.ErrPath = path
	case s == sideRight && which == "in":
		j.Right.InPath = path
	case s == sideRight && which == "out":
		j.Right.OutPath = path
	case s == sideRight && which == "err":
		j.Right.ErrPath = path
	}
}

func appendArgv(j *job.Job, s side, tok string) {
	if s == sideLeft {
		j.Left.Argv = append(j.Left.Argv, tok)
		return
	}
	j.Right.Argv = append(j.Right.Argv, tok)
}

// isMeta reports whether tok is one of the metacharacter tokens that may
// not appear as the first or last token, nor directly precede another
// metacharacter (except & at the very end).
func isMeta(tok string) bool {
	switch tok {
	case "<", ">", "2>", "|", "&":
		return true
	default:
		return false
	}
}

// validate applies the invariants of §3/§4.2 before the walk that builds
// argv/redirection fields, so a syntax error never has a side effect on the
// Job.
func validate(tokens []string) error {
	last := len(tokens) - 1

	if isMeta(tokens[0]) {
		return fmt.Errorf("syntax error: command should not start with %s", tokens[0])
	}

	pipeSeen := false
	for i, tok := range tokens {
		switch tok {
		case "<", ">", "2>":
			if i == last {
				return fmt.Errorf("syntax error: command should not end with %s", tok)
			}
			if isMeta(tokens[i+1]) {
				return fmt.Errorf("syntax error: near token %s", tokens[i+1])
			}
		case "|":
			if pipeSeen {
				return fmt.Errorf("syntax error: near token %s", tok)
			}
			pipeSeen = true
			if i == last {
				return fmt.Errorf("syntax error: command should not end with %s", tok)
			}
			if isMeta(tokens[i+1]) {
				return fmt.Errorf("syntax error: near token %s", tokens[i+1])
			}
		case "&":
			if i != last {
				return fmt.Errorf("syntax error: & should be the last token of the command")
			}
		}
	}

	return nil
}
