package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFixture(status domain.OrderStatus) (*store, *recordingNotifier, domain.OrderUseCase) {
	s := newStore()
	s.orders = append(s.orders, &domain.Order{
		ID: 7, OrderNumber: "ORD-1-ABCDEF", CustomerPhone: customer,
		TotalAmount: decimal.NewFromInt(3000), Status: status, PaymentStatus: domain.PaymentPending,
	})
	n := &recordingNotifier{}
	return s, n, NewOrderUseCase(&fakeOrderRepo{s: s}, n, quietLogger())
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		wantErr bool
	}{
		{"forward", domain.StatusPending, domain.StatusConfirmed, false},
		{"skip ahead", domain.StatusConfirmed, domain.StatusShipped, false},
		{"backwards", domain.StatusShipped, domain.StatusConfirmed, true},
		{"cancel before delivery", domain.StatusProcessing, domain.StatusCancelled, false},
		{"cancel after delivery", domain.StatusDelivered, domain.StatusCancelled, true},
		{"refund after delivery", domain.StatusDelivered, domain.StatusRefunded, false},
		{"out of terminal", domain.StatusCancelled, domain.StatusConfirmed, true},
		{"unknown", domain.StatusPending, domain.OrderStatus("lost"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, n, uc := newOrderFixture(tt.from)
			order, err := uc.UpdateStatus(context.Background(), 7, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.KindValidation, domain.KindOf(err))
				assert.Equal(t, tt.from, s.orders[0].Status)
				assert.Empty(t, n.statuses)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, order.Status)
			assert.Equal(t, []domain.OrderStatus{tt.to}, n.statuses)
		})
	}
}

func TestUpdateStatusSurvivesNotifyFailure(t *testing.T) {
	_, n, uc := newOrderFixture(domain.StatusPending)
	n.err = errors.New("gateway down")

	order, err := uc.UpdateStatus(context.Background(), 7, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, order.Status)
}

func TestUpdateTrackingNotifiesOnRequest(t *testing.T) {
	_, n, uc := newOrderFixture(domain.StatusShipped)
	ctx := context.Background()

	_, err := uc.UpdateTracking(ctx, 7, " ", true)
	require.Error(t, err)

	order, err := uc.UpdateTracking(ctx, 7, "TRK-1", false)
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", order.TrackingID)
	assert.Empty(t, n.tracking)

	_, err = uc.UpdateTracking(ctx, 7, "TRK-2", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"TRK-2"}, n.tracking)
}

func TestUpdatePaymentStatus(t *testing.T) {
	_, _, uc := newOrderFixture(domain.StatusPending)
	ctx := context.Background()

	_, err := uc.UpdatePaymentStatus(ctx, 7, domain.PaymentStatus("maybe"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	order, err := uc.UpdatePaymentStatus(ctx, 7, domain.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)

	_, err = uc.UpdatePaymentStatus(ctx, 8, domain.PaymentPaid)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSendTrackingAndInvoice(t *testing.T) {
	_, n, uc := newOrderFixture(domain.StatusShipped)
	ctx := context.Background()

	err := uc.SendTracking(ctx, 7)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	require.NoError(t, uc.SendInvoice(ctx, 7))
	assert.Equal(t, []string{"ORD-1-ABCDEF"}, n.invoices)
}
