package application

import "time"

// Status is the submission state of a workflow. A failed submission is
// StatusEditing with a non-empty Workflow.Error.
type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

// Workflow is the state container for one applicant's pass through the form.
type Workflow struct {
	ID        string    `json:"id"`
	Step      Step      `json:"step"`
	Draft     Draft     `json:"draft"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newWorkflow(id string, now time.Time) *Workflow {
	return &Workflow{
		ID:        id,
		Step:      FirstStep,
		Draft:     NewDraft(),
		Status:    StatusEditing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Failed reports whether the last submission attempt was rejected.
func (w *Workflow) Failed() bool {
	return w.Status == StatusEditing && w.Error != ""
}

// View is what callers get back after each operation. ScrollToOrigin is set by
// navigation and by every terminal submission branch.
type View struct {
	Workflow
	StepTitle      string `json:"stepTitle"`
	ScrollToOrigin bool   `json:"scrollToOrigin"`
}

func newView(w *Workflow, scroll bool) *View {
	return &View{
		Workflow:       *w,
		StepTitle:      w.Step.Title(),
		ScrollToOrigin: scroll,
	}
}

// SubmissionRecord is the audit trail of one submission attempt. It carries no
// applicant answers.
type SubmissionRecord struct {
	ID         string
	WorkflowID string
	Outcome    string
	StatusCode int
	Message    string
	Duration   time.Duration
	CreatedAt  time.Time
}

const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
	OutcomeDiscarded = "discarded"
)
