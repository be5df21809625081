package ordering

import (
	"context"
	"errors"
	"fmt"

	"tableside/internal/core"
	"tableside/internal/models"
	"tableside/internal/notify"
)

// Notification outcomes, also used as metric labels.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"
)

// TransitionResult is returned by SetStatus.
type TransitionResult struct {
	Order   *models.Order `json:"order"`
	Message string        `json:"message"`
	SMSSent bool          `json:"smsSent"`
}

// SetStatus moves an order to status and appends one audit entry. Moving to
// delivered also notifies the customer once the transition is stored; the
// outcome is appended as a second entry and never undoes the transition.
func (s *Service) SetStatus(ctx context.Context, orderID string, status models.OrderStatus, comment string) (*TransitionResult, error) {
	if !status.Valid() {
		return nil, core.Validationf("invalid status %q", status)
	}

	order, err := s.commitTransition(ctx, orderID, status, comment)
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{
		Order:   order,
		Message: fmt.Sprintf("Order status updated to %s", status),
	}
	if status != models.OrderStatusDelivered {
		return result, nil
	}

	outcome, sent := s.notifyDelivered(ctx, order)
	result.SMSSent = sent
	if sent {
		result.Message += ". Delivery SMS sent to customer."
	} else {
		result.Message += ". Delivery SMS could not be sent."
	}

	if updated, err := s.appendComment(ctx, orderID, outcome); err != nil {
		s.logger.ErrorContext(ctx, "record notification outcome", "order_id", orderID, "error", err)
	} else {
		result.Order = updated
	}
	s.publish(EventOrderStatus, result.Order)
	return result, nil
}

func (s *Service) commitTransition(ctx context.Context, orderID string, status models.OrderStatus, comment string) (*models.Order, error) {
	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := Transition(order, status, comment, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(string(status))
	s.logger.InfoContext(ctx, "order status updated", "order_id", orderID, "from", from, "to", status)
	if status != models.OrderStatusDelivered {
		s.publish(EventOrderStatus, order)
	}
	return order, nil
}

// notifyDelivered sends the delivery message under the notify timeout and
// returns the audit text describing what happened.
func (s *Service) notifyDelivered(ctx context.Context, order *models.Order) (string, bool) {
	customer, err := s.store.GetCustomer(ctx, order.CustomerID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return s.skipped(ctx, order, "customer not found")
	case err != nil:
		s.metrics.NotificationOutcome(NotifyFailed)
		return "Failed to send delivery SMS: " + err.Error(), false
	case customer.PhoneNumber == "":
		return s.skipped(ctx, order, "no phone number found for customer")
	case s.notifier == nil:
		return s.skipped(ctx, order, notify.ErrDisabled.Error())
	}

	// The transition is already stored; a cancelled request must not cut the
	// notification short, only the timeout may.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err = s.notifier.Send(sendCtx, customer.PhoneNumber, notify.Message{
		OrderID:        order.ID,
		SequenceNumber: order.SequenceNumber,
		TotalAmount:    order.TotalAmount,
		CustomerName:   customer.Name,
		Phone:          customer.PhoneNumber,
	})
	switch {
	case err == nil:
		s.metrics.NotificationOutcome(NotifySent)
		return fmt.Sprintf("Delivery notification SMS sent to %s (%s)", customer.Name, customer.PhoneNumber), true
	case errors.Is(err, notify.ErrDisabled):
		return s.skipped(ctx, order, err.Error())
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", s.notifyTimeout)
		}
		s.metrics.NotificationOutcome(NotifyFailed)
		s.logger.WarnContext(ctx, "delivery notification failed", "order_id", order.ID, "error", err)
		return "Failed to send delivery SMS: " + err.Error(), false
	}
}

func (s *Service) skipped(ctx context.Context, order *models.Order, reason string) (string, bool) {
	s.metrics.NotificationOutcome(NotifySkipped)
	s.logger.InfoContext(ctx, "delivery notification skipped", "order_id", order.ID, "reason", reason)
	return "Could not send delivery SMS: " + reason, false
}

// appendComment reloads the order so concurrent writes made while the
// notification was in flight are kept.
func (s *Service) appendComment(ctx context.Context, orderID, text string) (*models.Order, error) {
	unlock := s.lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	order.Comments = append(order.Comments, models.Comment{
		Timestamp: now,
		Status:    models.OrderStatusDelivered,
		Text:      text,
	})
	order.UpdatedAt = now
	if err := s.save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
