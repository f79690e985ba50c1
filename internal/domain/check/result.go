package check

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

// Detail is one labeled finding inside a result. Order is display order.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Outcome is what an executor reports back before the orchestrator stamps it.
type Outcome struct {
	Status   CheckStatus
	Headline string
	Details  []Detail
	Notes    []string
}

// NewOutcome starts an outcome with a status and headline.
func NewOutcome(status CheckStatus, headline string) Outcome {
	return Outcome{Status: status, Headline: headline}
}

// ErrorOutcome describes a probe that could not complete.
func ErrorOutcome(headline string, err error) Outcome {
	o := NewOutcome(CheckStatusError, headline)
	if err != nil {
		o.Notes = append(o.Notes, err.Error())
	}
	return o
}

// AddDetail appends a finding. Blank values are skipped.
func (o *Outcome) AddDetail(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	o.Details = append(o.Details, Detail{Label: label, Value: value})
}

func (o *Outcome) AddNote(format string, args ...interface{}) {
	note := format
	if len(args) > 0 {
		note = fmt.Sprintf(format, args...)
	}
	if strings.TrimSpace(note) == "" {
		return
	}
	o.Notes = append(o.Notes, note)
}

// Result represents one completed execution of a check kind.
// It is immutable once created.
type Result struct {
	kind       Kind
	status     CheckStatus
	headline   string
	details    []Detail
	notes      []string
	finishedAt time.Time
	duration   time.Duration
}

// NewResult stamps an outcome into an immutable result.
func NewResult(kind Kind, outcome Outcome, finishedAt time.Time, duration time.Duration) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, kind)
	}
	if !outcome.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", sharedErrors.ErrInvalidStatus, outcome.Status)
	}
	headline := strings.TrimSpace(outcome.Headline)
	if headline == "" {
		return nil, sharedErrors.ErrEmptyHeadline
	}
	if finishedAt.IsZero() {
		return nil, fmt.Errorf("%w: finish time is required", sharedErrors.ErrInvalidResult)
	}
	if duration < 0 {
		duration = 0
	}

	return &Result{
		kind:       kind,
		status:     outcome.Status,
		headline:   headline,
		details:    append([]Detail(nil), outcome.Details...),
		notes:      append([]string(nil), outcome.Notes...),
		finishedAt: finishedAt,
		duration:   duration,
	}, nil
}

// Getters

func (r *Result) Kind() Kind {
	return r.kind
}

func (r *Result) Status() CheckStatus {
	return r.status
}

func (r *Result) Headline() string {
	return r.headline
}

func (r *Result) Details() []Detail {
	return append([]Detail(nil), r.details...)
}

func (r *Result) Notes() []string {
	return append([]string(nil), r.notes...)
}

func (r *Result) FinishedAt() time.Time {
	return r.finishedAt
}

func (r *Result) Duration() time.Duration {
	return r.duration
}

// Detail looks up the first detail with the given label.
func (r *Result) Detail(label string) (string, bool) {
	for _, d := range r.details {
		if d.Label == label {
			return d.Value, true
		}
	}
	return "", false
}

type resultJSON struct {
	Kind            Kind        `json:"kind"`
	Title           string      `json:"title"`
	Status          CheckStatus `json:"status"`
	Headline        string      `json:"headline"`
	Details         []Detail    `json:"details"`
	Notes           []string    `json:"notes"`
	FinishedAt      time.Time   `json:"finished_at"`
	DurationSeconds float64     `json:"duration_seconds"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	details := r.Details()
	if details == nil {
		details = []Detail{}
	}
	notes := r.Notes()
	if notes == nil {
		notes = []string{}
	}
	return json.Marshal(resultJSON{
		Kind:            r.kind,
		Title:           r.kind.Title(),
		Status:          r.status,
		Headline:        r.headline,
		Details:         details,
		Notes:           notes,
		FinishedAt:      r.finishedAt,
		DurationSeconds: r.duration.Seconds(),
	})
}
