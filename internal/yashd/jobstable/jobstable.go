// Package jobstable implements the bounded, ordered per-client JobsTable
// described in §3: up to MaxJobs live entries, admission, removal, listing,
// and the background reaping maintainer of §4.5.
package jobstable

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"yashd/internal/log"
	"yashd/internal/yashd"
	"yashd/internal/yashd/job"
)

// logger is an object for logging package events to stdout.
var logger = log.New(os.Stdout, "jobstable")

// Table is a per-client bounded ordered collection of live Jobs. Slot 0 is
// the oldest live job; the entry at count-1 is the "current" job, marked
// '+' when listed.
type Table struct {
	mu    sync.Mutex
	slots [yashd.MaxJobs]*job.Job
	count int
	// nextNumber is the last job_number assigned; it only grows for the
	// lifetime of the Table, so a number is never reused after its job is
	// removed, not even when the table has emptied.
	nextNumber int
}

// New creates an empty Table.
func New() *Table {
	return &Table{}
}

// ErrFull indicates the table already holds MaxJobs live entries.
var ErrFull = fmt.Errorf("-yash: max number of concurrent jobs reached: %d", yashd.MaxJobs)

// Admit assigns j.JobNumber and inserts it as the new current job. It
// returns ErrFull, making no change, if the table is already at capacity.
func (t *Table) Admit(j *job.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count >= yashd.MaxJobs {
		return ErrFull
	}

	t.nextNumber++
	j.JobNumber = t.nextNumber
	t.slots[t.count] = j
	t.count++
	return nil
}

// Foreground returns the newest Job with status != Done and Background ==
// false, the recipient of CTL c / CTL z per §9. ok is false if no such job
// exists.
func (t *Table) Foreground() (j *job.Job, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := t.count - 1; i >= 0; i-- {
		s := t.slots[i]
		if s.Background {
			continue
		}
		if s.Status() == job.Done {
			continue
		}
		return s, true
	}
	return nil, false
}

// Maintain scans every live job once, polling each non-blockingly and
// applying the §4.5 reap table. Jobs observed to be Done are removed and
// their report lines are returned so the caller can send them to the
// client.
func (t *Table) Maintain() []string {
	t.mu.Lock()
	jobs := make([]*job.Job, t.count)
	copy(jobs, t.slots[:t.count])
	t.mu.Unlock()

	var reports []string
	for _, j := range jobs {
		done, err := j.Poll()
		if err != nil {
			logger.Errorf("poll job %d: %v", j.JobNumber, err)
			continue
		}
		if done {
			reports = append(reports, t.removeReport(j))
		}
	}
	return reports
}

// removeReport removes j from the table (if still present) and renders its
// final report line.
func (t *Table) removeReport(j *job.Job) string {
	t.mu.Lock()
	idx := t.indexOf(j)
	var line string
	if idx >= 0 {
		line = j.ReportLine(idx == t.count-1)
		t.remove(idx)
	}
	t.mu.Unlock()
	return line
}

// List renders one report line per live Running/Stopped job, oldest first,
// with the current (last) job marked '+', or the fixed "no jobs" message if
// the table is empty, per §4.6.
func (t *Table) List() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return "No jobs in job table\n"
	}

	var b strings.Builder
	for i := 0; i < t.count; i++ {
		j := t.slots[i]
		if j.Status() == job.Done {
			continue
		}
		b.WriteString(j.ReportLine(i == t.count-1))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No jobs in job table\n"
	}
	return b.String()
}

// indexOf returns the slot index of j, or -1 if not present. Callers must
// hold t.mu.
func (t *Table) indexOf(j *job.Job) int {
	for i := 0; i < t.count; i++ {
		if t.slots[i] == j {
			return i
		}
	}
	return -1
}

// remove deletes the slot at i, shifting later entries down one, and
// shrinks count. Callers must hold t.mu.
func (t *Table) remove(i int) {
	for k := i; k < t.count-1; k++ {
		t.slots[k] = t.slots[k+1]
	}
	t.slots[t.count-1] = nil
	t.count--
}

// Remove immediately removes j from the table, used by the job task when a
// foreground job completes synchronously within it, or when the job fails
// to start (§4.3 step 3: "... then reclaim terminal control and remove the
// job.").
func (t *Table) Remove(j *job.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx := t.indexOf(j); idx >= 0 {
		t.remove(idx)
	}
}

// Count returns the number of live entries.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}
