package servant

import "yashd/internal/yashd/wire"

// isBuiltin reports whether line, the whole trimmed command line, is
// exactly one of the built-in names handled synchronously by the servant
// task instead of spawning a job task, per §4.7: "line ∈ {bg, fg, jobs}" is
// a whole-line membership test, not a first-token one, so "jobs extra-arg"
// is an ordinary command and not a builtin invocation.
func isBuiltin(line string) bool {
	switch line {
	case "jobs", "bg", "fg":
		return true
	default:
		return false
	}
}

// runBuiltin executes a built-in command synchronously on the servant's own
// goroutine. bg and fg are accepted stubs per §4.6/§9: "fg and bg are
// stubs; do not synthesize behaviour."
func runBuiltin(info *ShellInfo, name string) {
	switch name {
	case "jobs":
		info.Jobs.Maintain()
		_ = wire.WriteRaw(info.Conn, []byte(info.Jobs.List()))
	case "bg", "fg":
		// Stubbed in the source this system is modeled on: accepted, no
		// observable effect.
	}
}
