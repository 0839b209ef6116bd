package orders

import (
	"fmt"

	"github.com/boursa/brokerage-api/internal/types"
)

// ErrInvalidTransition reports a workflow step attempted from the wrong state.
type ErrInvalidTransition struct {
	From WorkflowState
	Step string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Step, e.From)
}

func invalidTransition(w *Workflow, step string) error {
	return &ErrInvalidTransition{From: w.State, Step: step}
}

// SelectSecurity records the chosen security. Secondary-market flows proceed
// directly to order detail; primary-market flows continue to client selection.
func (w *Workflow) SelectSecurity(securityID string) error {
	if w.State != StateSelectingSecurity {
		return invalidTransition(w, "select security")
	}

	w.SecurityID = securityID
	if w.MarketType == types.MarketPrimary {
		w.State = StateSelectingClient
	} else {
		w.State = StateComposingOrder
	}
	return nil
}

// SelectClient records the client the order is placed for (primary-market flow).
func (w *Workflow) SelectClient(clientID string) error {
	if w.State != StateSelectingClient {
		return invalidTransition(w, "select client")
	}

	w.ClientID = clientID
	w.State = StateCapturingSubscriber
	return nil
}

// CaptureSubscriber records the beneficial-owner identity (primary-market flow).
func (w *Workflow) CaptureSubscriber(sub types.Subscriber) error {
	if w.State != StateCapturingSubscriber {
		return invalidTransition(w, "capture subscriber identity")
	}

	w.Subscriber = sub
	w.SubscriberCaptured = true
	w.State = StateComposingOrder
	return nil
}

// Back returns to the immediately prior step, clearing the state that step
// had captured.
func (w *Workflow) Back() error {
	switch w.State {
	case StateSelectingClient:
		w.SecurityID = ""
		w.State = StateSelectingSecurity
	case StateCapturingSubscriber:
		w.ClientID = ""
		w.State = StateSelectingClient
	case StateComposingOrder:
		if w.MarketType == types.MarketPrimary {
			w.Subscriber = types.Subscriber{}
			w.SubscriberCaptured = false
			w.State = StateCapturingSubscriber
		} else {
			w.SecurityID = ""
			w.State = StateSelectingSecurity
		}
	default:
		return invalidTransition(w, "go back")
	}
	return nil
}

// BeginSubmit moves into Submitting. Only one submission can be in flight:
// a workflow already Submitting or beyond refuses the transition.
func (w *Workflow) BeginSubmit() error {
	if w.State != StateComposingOrder {
		return invalidTransition(w, "submit")
	}
	w.State = StateSubmitting
	return nil
}

// CompleteSubmit records the created order and starts waiting for the signed
// bulletin.
func (w *Workflow) CompleteSubmit(orderID string) error {
	if w.State != StateSubmitting {
		return invalidTransition(w, "complete submission")
	}
	w.CreatedOrderID = orderID
	w.State = StateAwaitingDocument
	return nil
}

// FailSubmit returns to order composition after a failed or invalid
// submission. No automatic retry.
func (w *Workflow) FailSubmit() error {
	if w.State != StateSubmitting {
		return invalidTransition(w, "fail submission")
	}
	w.State = StateComposingOrder
	return nil
}

// AttachBulletin confirms the workflow once the signed bulletin is uploaded.
func (w *Workflow) AttachBulletin() error {
	if w.State != StateAwaitingDocument {
		return invalidTransition(w, "attach bulletin")
	}
	w.State = StateConfirmed
	return nil
}
