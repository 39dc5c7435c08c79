package checkout

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaidrashid-git/floreria-api/cart"
)

type recordingSubmitter struct {
	calls int
	err   error
}

func (r *recordingSubmitter) SubmitOrder(context.Context, string, FormData, *cart.Cart) (*Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &Result{PedidoID: 1, NumeroPedido: "FLO-0001"}, nil
}

func completePickupForm() FormData {
	f := DefaultForm()
	f.Sender = validSender()
	f.Payment.TermsAccepted = true
	return f
}

func completeDeliveryForm() FormData {
	f := completePickupForm()
	f.Shipping = Shipping{Method: MethodScheduled, Date: "2026-10-21", TimeSlot: "09-13"}
	f.Recipient = Recipient{Name: "Luz", Phone: "1144445555", Address: "Av. Corrientes 1234", City: "CABA"}
	return f
}

func filledCart() *cart.Cart {
	return cart.FromItems([]cart.Item{{ProductID: 1, Name: "Ramo", UnitPrice: decimal.NewFromInt(100), Quantity: 1}})
}

func TestWizard_NextAndPrev(t *testing.T) {
	w := NewWizard(completePickupForm())
	assert.Equal(t, 0, w.CurrentIndex())

	w.Prev()
	assert.Equal(t, 0, w.CurrentIndex(), "prev at the first step is a no-op")

	for i := 1; i < 4; i++ {
		require.True(t, w.Next())
		assert.Equal(t, i, w.CurrentIndex())
	}
	assert.True(t, w.IsLast())
	assert.False(t, w.Next(), "next never passes the last step")
	assert.Equal(t, 3, w.CurrentIndex())

	w.Prev()
	assert.Equal(t, StepDedication, w.Current())
}

func TestWizard_NextBlocksOnErrors(t *testing.T) {
	f := DefaultForm()
	f.Sender = Sender{Name: "Ana", Email: "not-an-email", Phone: "1145678901"}
	w := NewWizard(f)

	require.True(t, w.Next())
	assert.Equal(t, StepSender, w.Current())

	assert.False(t, w.Next())
	assert.Equal(t, StepSender, w.Current())
	assert.Contains(t, w.Errors(), "email")

	f.Sender.Email = "ana@example.com"
	w.UpdateForm(f)
	assert.True(t, w.Next())
	assert.False(t, w.HasErrors())
}

func TestWizard_ScheduledWithoutDate(t *testing.T) {
	f := DefaultForm()
	f.Shipping = Shipping{Method: MethodScheduled, TimeSlot: "09-13"}
	w := NewWizard(f)

	assert.False(t, w.Next())
	assert.Equal(t, 0, w.CurrentIndex())
	assert.Contains(t, w.Errors(), "fecha")
}

func TestWizard_FlowChangeReanchorsStep(t *testing.T) {
	w := NewWizard(completeDeliveryForm())
	require.Len(t, w.Steps(), 5)
	require.True(t, w.Next())
	require.True(t, w.Next())
	assert.Equal(t, StepSender, w.Current())
	assert.Equal(t, 2, w.CurrentIndex())

	f := w.Form()
	f.Shipping.Method = MethodPickup
	w.UpdateForm(f)
	assert.Len(t, w.Steps(), 4)
	assert.Equal(t, StepSender, w.Current(), "the sender step keeps its tag")
	assert.Equal(t, 1, w.CurrentIndex())

	f.Shipping.Method = MethodExpress
	w.UpdateForm(f)
	assert.Equal(t, StepSender, w.Current())
	assert.Equal(t, 2, w.CurrentIndex())
}

func TestWizard_FlowChangeClampsMissingStep(t *testing.T) {
	w := NewWizard(completeDeliveryForm())
	require.True(t, w.Next())
	assert.Equal(t, StepRecipient, w.Current())

	w.errors = ErrorMap{"direccion": "x"}
	f := w.Form()
	f.Shipping.Method = MethodPickup
	w.UpdateForm(f)

	assert.Equal(t, 1, w.CurrentIndex())
	assert.Equal(t, StepSender, w.Current())
	assert.False(t, w.HasErrors(), "a flow change clears errors")
}

func TestWizard_SubmitEmptyCart(t *testing.T) {
	w := NewWizard(completePickupForm())
	for w.Next() {
	}
	sub := &recordingSubmitter{}

	_, err := w.Submit(context.Background(), "g1", cart.New(), sub)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, sub.calls)
}

func TestWizard_SubmitNotOnLastStep(t *testing.T) {
	w := NewWizard(completePickupForm())
	sub := &recordingSubmitter{}

	_, err := w.Submit(context.Background(), "g1", filledCart(), sub)
	assert.ErrorIs(t, err, ErrNotOnFinalStep)
	assert.Zero(t, sub.calls)
}

func TestWizard_SubmitJumpsToFirstInvalidStep(t *testing.T) {
	w := NewWizard(completeDeliveryForm())
	for w.Next() {
	}
	require.True(t, w.IsLast())

	f := w.Form()
	f.Recipient.Address = ""
	w.UpdateForm(f)
	sub := &recordingSubmitter{}

	_, err := w.Submit(context.Background(), "g1", filledCart(), sub)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StepRecipient, w.Current())
	assert.Contains(t, w.Errors(), "direccion")
	assert.Zero(t, sub.calls)
}

func TestWizard_Submit(t *testing.T) {
	w := NewWizard(completePickupForm())
	for w.Next() {
	}
	sub := &recordingSubmitter{}

	res, err := w.Submit(context.Background(), "g1", filledCart(), sub)
	require.NoError(t, err)
	assert.Equal(t, "FLO-0001", res.NumeroPedido)
	assert.Equal(t, 1, sub.calls)
}

func TestWizard_StateRoundTrip(t *testing.T) {
	w := NewWizard(completeDeliveryForm())
	require.True(t, w.Next())

	data, err := json.Marshal(w.State())
	require.NoError(t, err)
	var s State
	require.NoError(t, json.Unmarshal(data, &s))

	restored := RestoreWizard(s)
	assert.Equal(t, w.State(), restored.State())

	s.CurrentStep = 42
	assert.True(t, RestoreWizard(s).IsLast())
}

func TestWizard_ViewFollowsTag(t *testing.T) {
	w := NewWizard(completeDeliveryForm())
	require.True(t, w.Next())
	v := w.View()
	assert.Equal(t, StepRecipient, v.Step)
	assert.Contains(t, v.Fields, "destinatario.direccion")
}
