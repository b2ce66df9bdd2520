package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ domain.OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	orderRepo domain.OrderRepository
	notifier  domain.OrderNotifier
	log       *logrus.Logger
}

func NewOrderUseCase(orderRepo domain.OrderRepository, notifier domain.OrderNotifier, logger *logrus.Logger) domain.OrderUseCase {
	return &orderUseCase{
		orderRepo: orderRepo,
		notifier:  notifier,
		log:       logger,
	}
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid order ID", domain.ErrValidation)
	}
	return uc.orderRepo.GetByID(ctx, id)
}

// UpdateStatus enforces the status progression and then tells the customer.
// A failed notification does not undo the status change.
func (uc *orderUseCase) UpdateStatus(ctx context.Context, id int, status domain.OrderStatus) (*domain.Order, error) {
	status = domain.OrderStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !domain.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid order status '%s'", domain.ErrValidation, status)
	}
	current, err := uc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: cannot move order %s from %s to %s", domain.ErrValidation, current.OrderNumber, current.Status, status)
	}

	updated, err := uc.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Order %s moved from %s to %s", updated.OrderNumber, current.Status, updated.Status)

	if err := uc.notifier.NotifyStatusChange(ctx, updated); err != nil {
		uc.log.Warnf("Use Case: Status notification for order %s failed: %v", updated.OrderNumber, err)
	}
	return updated, nil
}

func (uc *orderUseCase) UpdateTracking(ctx context.Context, id int, trackingID string, notify bool) (*domain.Order, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, fmt.Errorf("%w: tracking ID cannot be empty", domain.ErrValidation)
	}
	if _, err := uc.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	updated, err := uc.orderRepo.UpdateTracking(ctx, id, trackingID)
	if err != nil {
		return nil, err
	}
	if notify {
		if err := uc.notifier.SendTracking(ctx, updated); err != nil {
			uc.log.Warnf("Use Case: Tracking notification for order %s failed: %v", updated.OrderNumber, err)
		}
	}
	return updated, nil
}

func (uc *orderUseCase) UpdatePaymentStatus(ctx context.Context, id int, status domain.PaymentStatus) (*domain.Order, error) {
	status = domain.PaymentStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !domain.IsValidPaymentStatus(status) {
		return nil, fmt.Errorf("%w: invalid payment status '%s'", domain.ErrValidation, status)
	}
	if _, err := uc.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return uc.orderRepo.UpdatePaymentStatus(ctx, id, status)
}

func (uc *orderUseCase) SendTracking(ctx context.Context, id int) error {
	order, err := uc.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return uc.notifier.SendTracking(ctx, order)
}

func (uc *orderUseCase) SendInvoice(ctx context.Context, id int) error {
	order, err := uc.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return uc.notifier.SendInvoice(ctx, order)
}
