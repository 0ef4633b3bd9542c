package todo

import (
	"getitdone/internal/model"
)

type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateError   LoadState = "error"
)

// Collection is the client-side copy of the task list plus the per-row busy set.
//
// Fetch results are applied in completion order: whichever fetch settles last wins.
// A failed fetch keeps the previous tasks.
type Collection struct {
	state    LoadState
	tasks    []model.Task
	settled  bool
	inflight int
	busy     map[string]bool
}

func NewCollection() *Collection {
	return &Collection{state: StateIdle, busy: map[string]bool{}}
}

func (c *Collection) BeginFetch() {
	c.inflight++
	c.state = StateLoading
}

// ApplyFetch records the outcome of one fetch and returns the notice to show, if any.
// State stays loading while other fetches are outstanding.
func (c *Collection) ApplyFetch(tasks []model.Task, err error) *Notice {
	if c.inflight > 0 {
		c.inflight--
	}
	c.settled = true
	if err != nil {
		c.setState(StateError)
		return failure(MsgLoadFailed)
	}
	c.tasks = append([]model.Task(nil), tasks...)
	c.setState(StateLoaded)

	// Rows that disappeared cannot stay busy.
	for id := range c.busy {
		if _, ok := c.Find(id); !ok {
			delete(c.busy, id)
		}
	}
	return nil
}

func (c *Collection) setState(outcome LoadState) {
	if c.inflight > 0 {
		c.state = StateLoading
		return
	}
	c.state = outcome
}

// State is loading while any fetch is in flight, otherwise the outcome of the
// last fetch to settle.
func (c *Collection) State() LoadState { return c.state }

// Settled reports whether at least one fetch has completed.
func (c *Collection) Settled() bool { return c.settled }

// Loading reports whether a fetch is in flight.
func (c *Collection) Loading() bool { return c.inflight > 0 }

// Tasks returns the full collection, newest first.
func (c *Collection) Tasks() []model.Task { return c.tasks }

func (c *Collection) Len() int { return len(c.tasks) }

func (c *Collection) Visible(f model.Filter) []model.Task { return f.Apply(c.tasks) }

func (c *Collection) Find(id string) (model.Task, bool) {
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// MarkBusy flags a row as having a request in flight. It returns false when the row
// was already busy, in which case the caller must not send another request.
func (c *Collection) MarkBusy(id string) bool {
	if c.busy[id] {
		return false
	}
	c.busy[id] = true
	return true
}

func (c *Collection) ClearBusy(id string) { delete(c.busy, id) }

func (c *Collection) Busy(id string) bool { return c.busy[id] }

// Reset drops all tasks (used when the user signs out).
func (c *Collection) Reset() {
	*c = *NewCollection()
}
