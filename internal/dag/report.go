package dag

import (
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/artifactgen/internal/task"
)

// Entry is the outcome of one task.
type Entry struct {
	ID     string
	Status Status
	Result task.Result
	Err    error
}

// Report collects the outcome of every task of a run.
type Report struct {
	entries map[string]Entry
}

// Get returns the entry for id.
func (r *Report) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Entries returns all entries sorted by ID.
func (r *Report) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns how many tasks ended in status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, e := range r.entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// Written returns how many output files were rewritten during the run.
func (r *Report) Written() int {
	n := 0
	for _, e := range r.entries {
		n += e.Result.Written()
	}
	return n
}

// Err joins the errors of failed tasks in ID order.
func (r *Report) Err() error {
	var errs []error
	for _, e := range r.Entries() {
		if e.Status == Failed && e.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.ID, e.Err))
		}
	}
	return errors.Join(errs...)
}
