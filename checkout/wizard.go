package checkout

import (
	"context"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/metrics"
)

// OrderSubmitter turns a validated form and a non-empty cart into an order.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, owner string, form FormData, c *cart.Cart) (*Result, error)
}

// State is the persisted form of a Wizard.
type State struct {
	CurrentStep int        `json:"current_step"`
	Steps       []StepKind `json:"steps"`
	Errors      ErrorMap   `json:"errors"`
	Form        FormData   `json:"form"`
}

// Wizard is the checkout state machine. The step list follows the shipping method
// of the form; errors hold the result of the last failed validation.
type Wizard struct {
	form    FormData
	steps   []StepKind
	current int
	errors  ErrorMap
}

func NewWizard(form FormData) *Wizard {
	return &Wizard{
		form:   form,
		steps:  StepsFor(form.Shipping.Method),
		errors: ErrorMap{},
	}
}

// RestoreWizard rebuilds a wizard from a persisted state. The step list is derived
// from the form again and the current step is clamped into it.
func RestoreWizard(s State) *Wizard {
	w := NewWizard(s.Form)
	w.current = clamp(s.CurrentStep, len(w.steps))
	for k, v := range s.Errors {
		w.errors[k] = v
	}
	return w
}

func (w *Wizard) State() State {
	errs := make(ErrorMap, len(w.errors))
	for k, v := range w.errors {
		errs[k] = v
	}
	return State{
		CurrentStep: w.current,
		Steps:       append([]StepKind(nil), w.steps...),
		Errors:      errs,
		Form:        w.form,
	}
}

func (w *Wizard) Form() FormData { return w.form }
func (w *Wizard) Steps() []StepKind { return append([]StepKind(nil), w.steps...) }
func (w *Wizard) CurrentIndex() int { return w.current }
func (w *Wizard) Current() StepKind { return w.steps[w.current] }
func (w *Wizard) IsLast() bool { return w.current == len(w.steps)-1 }
func (w *Wizard) View() StepView { return ViewFor(w.Current()) }
func (w *Wizard) Errors() ErrorMap { return w.State().Errors }
func (w *Wizard) HasErrors() bool { return len(w.errors) > 0 }

// Next validates the current step and advances when it is valid. It reports
// whether the wizard moved. The last step never advances.
func (w *Wizard) Next() bool {
	step := w.Current()
	errs := ValidateStep(step, w.form)
	if len(errs) > 0 {
		w.errors = errs
		metrics.WizardTransitions.WithLabelValues(string(step), "blocked").Inc()
		return false
	}
	w.errors = ErrorMap{}
	if w.IsLast() {
		return false
	}
	w.current++
	metrics.WizardTransitions.WithLabelValues(string(step), "advanced").Inc()
	return true
}

// Prev goes back one step without validating. At the first step it does nothing.
func (w *Wizard) Prev() {
	if w.current > 0 {
		w.current--
		metrics.WizardTransitions.WithLabelValues(string(w.Current()), "back").Inc()
	}
}

// UpdateForm replaces the form. When the change switches between pickup and
// delivery the step list is rebuilt, the current step keeps its tag when the new
// flow has it (otherwise its index is clamped) and errors are cleared.
func (w *Wizard) UpdateForm(f FormData) {
	flowChanged := w.form.Shipping.Method.IsPickup() != f.Shipping.Method.IsPickup()
	w.form = f
	if !flowChanged {
		return
	}
	current := w.Current()
	w.steps = StepsFor(f.Shipping.Method)
	if i := indexOf(w.steps, current); i >= 0 {
		w.current = i
	} else {
		w.current = clamp(w.current, len(w.steps))
	}
	w.errors = ErrorMap{}
}

// Submit sends the order. The cart must not be empty and the wizard must be on its
// last step; every step of the flow is validated again and the wizard jumps to the
// first invalid one.
func (w *Wizard) Submit(ctx context.Context, owner string, c *cart.Cart, sub OrderSubmitter) (*Result, error) {
	if c == nil || c.IsEmpty {
		metrics.CheckoutSubmissions.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	if !w.IsLast() {
		return nil, ErrNotOnFinalStep
	}
	for i, step := range w.steps {
		if errs := ValidateStep(step, w.form); len(errs) > 0 {
			w.current = i
			w.errors = errs
			metrics.CheckoutSubmissions.WithLabelValues("invalid").Inc()
			return nil, ErrValidation
		}
	}
	w.errors = ErrorMap{}
	return sub.SubmitOrder(ctx, owner, w.form, c)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
