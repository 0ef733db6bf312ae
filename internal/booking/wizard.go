package booking

import (
	"context"
	"errors"
	"sync"
)

// Step is a wizard position.
type Step int

const (
	StepContact Step = iota + 1
	StepLocation
	StepServiceDetails
	StepSchedule
	StepReview
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepLocation:
		return "location"
	case StepServiceDetails:
		return "service details"
	case StepSchedule:
		return "schedule"
	case StepReview:
		return "review"
	case StepSubmitted:
		return "submitted"
	}
	return "unknown"
}

var (
	// ErrSubmitted is returned by every mutation once the booking was submitted.
	ErrSubmitted = errors.New("booking: already submitted")
	// ErrNotOnReview is returned when Submit is called before the review step.
	ErrNotOnReview = errors.New("booking: submit is only allowed from the review step")
	// ErrFirstStep is returned by Back on the first step.
	ErrFirstStep = errors.New("booking: already on the first step")
)

// Record is the created booking echoed back by the submitter.
type Record struct {
	ID        string `json:"id"`
	Reference string `json:"reference,omitempty"`
	Form
}

// Submitter persists a completed booking form.
type Submitter interface {
	SubmitBooking(ctx context.Context, form Form) (Record, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, form Form) (Record, error)

func (f SubmitterFunc) SubmitBooking(ctx context.Context, form Form) (Record, error) {
	return f(ctx, form)
}

// Wizard walks a form through the linear booking steps.
type Wizard struct {
	prices PriceList

	mu     sync.Mutex
	step   Step
	form   Form
	record *Record
}

// NewWizard starts a wizard on the contact step.
func NewWizard(prices PriceList) *Wizard {
	if prices == nil {
		prices = DefaultPrices()
	}
	return &Wizard{prices: prices, step: StepContact}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Form returns a copy of the collected form.
func (w *Wizard) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// Record returns the submitted record when the wizard is complete.
func (w *Wizard) Record() (Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.record == nil {
		return Record{}, false
	}
	return *w.record, true
}

// Update edits the form in place.
func (w *Wizard) Update(edit func(*Form)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return ErrSubmitted
	}
	edit(&w.form)
	return nil
}

// Next advances one step when the current step's required fields are present.
// On failure the wizard stays put and the error lists the missing fields.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepSubmitted:
		return ErrSubmitted
	case StepReview:
		return ErrNotOnReview
	}
	if err := CheckStep(w.step, w.form); err != nil {
		return err
	}
	w.step++
	return nil
}

// Back moves one step without validating.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepSubmitted:
		return ErrSubmitted
	case StepContact:
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Submit computes the estimate, hands the form to submitter and locks the
// wizard on success. A failed submission leaves the wizard on review.
func (w *Wizard) Submit(ctx context.Context, submitter Submitter) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return Record{}, ErrSubmitted
	}
	if w.step != StepReview {
		return Record{}, ErrNotOnReview
	}
	if err := CheckStep(StepReview, w.form); err != nil {
		return Record{}, err
	}
	estimate, err := Estimate(w.prices, w.form.ServiceType, w.form.Bedrooms, w.form.Bathrooms)
	if err != nil {
		return Record{}, err
	}
	form := w.form
	form.EstimatedPrice = estimate

	record, err := submitter.SubmitBooking(ctx, form)
	if err != nil {
		return Record{}, err
	}
	w.form = form
	w.record = &record
	w.step = StepSubmitted
	return record, nil
}
