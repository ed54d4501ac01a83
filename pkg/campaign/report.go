package campaign

import (
	"time"

	"github.com/google/uuid"

	"github.com/telekom/bulkmail/pkg/apperrors"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Outcome is the result for one contact. Index is the contact's position in
// the (capped) source, starting at 0.
type Outcome struct {
	Index     int            `json:"index" yaml:"index"`
	Recipient string         `json:"recipient" yaml:"recipient"`
	Status    Status         `json:"status" yaml:"status"`
	Kind      apperrors.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason    string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Report summarises a run. It is returned even when a fatal error stopped
// the run, and then holds the outcomes recorded up to that point.
type Report struct {
	RunID    string    `json:"runId" yaml:"runId"`
	Source   string    `json:"source" yaml:"source"`
	TestMode bool      `json:"testMode" yaml:"testMode"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
	Duration string    `json:"duration" yaml:"duration"`
	Sent     int       `json:"sent" yaml:"sent"`
	Failed   int       `json:"failed" yaml:"failed"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

func newReport(source string, testMode bool, started time.Time) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Source:   source,
		TestMode: testMode,
		Started:  started,
		Outcomes: []Outcome{},
	}
}

func (r *Report) sent(index int, recipient string) {
	r.Sent++
	r.Outcomes = append(r.Outcomes, Outcome{Index: index, Recipient: recipient, Status: StatusSent})
}

func (r *Report) failed(index int, recipient string, err error) {
	r.Failed++
	r.Outcomes = append(r.Outcomes, Outcome{
		Index:     index,
		Recipient: recipient,
		Status:    StatusFailed,
		Kind:      apperrors.KindOf(err),
		Reason:    err.Error(),
	})
}

func (r *Report) finish(at time.Time) {
	r.Finished = at
	r.Duration = at.Sub(r.Started).Round(time.Millisecond).String()
}

// Total is the number of contacts that received an outcome.
func (r *Report) Total() int { return len(r.Outcomes) }

// Failures returns the failed outcomes in order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}
