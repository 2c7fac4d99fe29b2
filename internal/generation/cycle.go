package generation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"kaimenu/internal/llm"
	"kaimenu/internal/menu"
)

// State is a step of one generation cycle.
type State string

const (
	StateIdle               State = "idle"
	StateRendered           State = "rendered"
	StateAwaitingResponse   State = "awaiting_response"
	StateReceivedCandidates State = "received_candidates"
	StateValidated          State = "validated"
	StateFailed             State = "failed"
)

// allowed lists the forward edges; any state but Validated may fail.
var allowed = map[State][]State{
	StateIdle:               {StateRendered},
	StateRendered:           {StateAwaitingResponse},
	StateAwaitingResponse:   {StateReceivedCandidates},
	StateReceivedCandidates: {StateValidated},
}

// Outcome pairs a candidate with the validator's verdict.
type Outcome struct {
	Menu    menu.Candidate `json:"menu"`
	Verdict menu.Verdict   `json:"verdict"`
}

// Cycle is the full record of one request, response and validation pass.
type Cycle struct {
	ID          uuid.UUID             `json:"id"`
	ParentID    *uuid.UUID            `json:"parent_id,omitempty"`
	State       State                 `json:"state"`
	History     []State               `json:"history"`
	Request     llm.GenerationRequest `json:"request"`
	RawResponse string                `json:"raw_response,omitempty"`
	Accepted    []Outcome             `json:"accepted"`
	Rejected    []Outcome             `json:"rejected"`
	Error       string                `json:"error,omitempty"`
	ArchiveKey  string                `json:"archive_key,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`

	err error
}

func newCycle() *Cycle {
	return &Cycle{
		ID:        uuid.New(),
		State:     StateIdle,
		History:   []State{StateIdle},
		Accepted:  []Outcome{},
		Rejected:  []Outcome{},
		StartedAt: time.Now().UTC(),
	}
}

// Err is the failure that moved the cycle to Failed, if any.
func (c *Cycle) Err() error { return c.err }

func (c *Cycle) advance(to State) {
	for _, next := range allowed[c.State] {
		if next == to {
			c.State = to
			c.History = append(c.History, to)
			if to == StateValidated {
				c.FinishedAt = time.Now().UTC()
			}
			return
		}
	}
	panic(fmt.Sprintf("generation: illegal transition %s -> %s", c.State, to))
}

func (c *Cycle) fail(err error) error {
	c.State = StateFailed
	c.History = append(c.History, StateFailed)
	c.err = err
	c.Error = err.Error()
	c.FinishedAt = time.Now().UTC()
	return err
}

// Summary drops the prompt and raw response for API replies.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	State      State      `json:"state"`
	Accepted   []Outcome  `json:"accepted"`
	Rejected   []Outcome  `json:"rejected"`
	Error      string     `json:"error,omitempty"`
	ArchiveKey string     `json:"archive_key,omitempty"`
}

func (c *Cycle) Summary() Summary {
	return Summary{
		ID:         c.ID,
		ParentID:   c.ParentID,
		State:      c.State,
		Accepted:   c.Accepted,
		Rejected:   c.Rejected,
		Error:      c.Error,
		ArchiveKey: c.ArchiveKey,
	}
}

// Rejections lists rejected candidates with their reasons.
func (c *Cycle) Rejections() []llm.Rejection {
	out := make([]llm.Rejection, 0, len(c.Rejected))
	for _, o := range c.Rejected {
		out = append(out, llm.Rejection{MealName: o.Menu.Name, Reason: o.Verdict.Reason})
	}
	return out
}
