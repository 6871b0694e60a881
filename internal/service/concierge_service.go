package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordStore is the gateway contract the engine orchestrates against.
// Every lookup can fail with a not-found, remote rejection, or
// connectivity error; the engine only adds business validation on top.
type RecordStore interface {
	FindOrder(ctx context.Context, identifier string) (*domain.Order, error)
	FindOrderItem(ctx context.Context, id string) (*domain.OrderItem, error)
	CreateReturnOrder(ctx context.Context, ro *domain.ReturnOrder) (string, error)
	CreateReturnLineItem(ctx context.Context, line *domain.ReturnOrderLineItem) (string, error)
	UpdateReturnOrder(ctx context.Context, id string, upd domain.ReturnOrderUpdate) error
	DeleteReturnOrder(ctx context.Context, id string) error
	FindReturnOrder(ctx context.Context, id string, withLineItems bool) (*domain.ReturnOrder, error)
	FindCase(ctx context.Context, id string) (*domain.Case, error)
	FindUser(ctx context.Context, idOrName string) (*domain.User, error)
	CreateCase(ctx context.Context, kase *domain.Case) (string, error)
	UpdateCase(ctx context.Context, id string, upd domain.CaseUpdate) error
	CreateCaseComment(ctx context.Context, comment *domain.CaseComment) error
	QueueReturnLabelEmail(ctx context.Context, email *domain.ReturnLabelEmail) error
}

// Notifier delivers best-effort alerts. Send never fails the caller.
type Notifier interface {
	Send(ctx context.Context, alert domain.Alert) bool
}

// EventPublisher emits workflow events. Failures are logged, never
// propagated.
type EventPublisher interface {
	PublishReturnCreated(event events.ReturnCreatedEvent) error
	PublishCaseCreated(event events.CaseCreatedEvent) error
	PublishCaseStatusChanged(event events.CaseStatusChangedEvent) error
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ConciergeService orchestrates the order-return-case workflow. It holds
// no state between calls; everything lives in the record store.
type ConciergeService struct {
	store    RecordStore
	notifier Notifier
	events   EventPublisher
	logger   *zap.Logger
}

func NewConciergeService(store RecordStore, notifier Notifier, publisher EventPublisher, logger *zap.Logger) *ConciergeService {
	return &ConciergeService{
		store:    store,
		notifier: notifier,
		events:   publisher,
		logger:   logger,
	}
}

// GetOrderStatus looks up an order by record id or order number and
// returns the shipping-oriented status record.
func (s *ConciergeService) GetOrderStatus(ctx context.Context, identifier string) (*domain.OrderStatusResult, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, "order identifier is required")
	}

	order, err := s.store.FindOrder(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return &domain.OrderStatusResult{
		OrderID:           order.OrderNumber,
		Status:            order.Status,
		Carrier:           order.Carrier,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		ShippingAddress:   order.ShippingAddress,
	}, nil
}

// CreateReturn creates a return order with a single line item. The two
// creates are not transactional: when the line item create fails the
// fresh return order is deleted so no orphan Draft record survives.
//
// Two concurrent calls against the same line item can both pass the
// quantity check; the store has no transactions to arbitrate this.
func (s *ConciergeService) CreateReturn(ctx context.Context, req domain.CreateReturnRequest) (string, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return "", domain.Errorf(domain.KindInvalidInput, "order id is required")
	}
	if !domain.ValidRecordID(req.LineItemID) {
		return "", domain.Errorf(domain.KindInvalidInput,
			"invalid line item id %q: must be a 15 or 18 character record id", req.LineItemID)
	}
	if req.Quantity <= 0 {
		return "", domain.Errorf(domain.KindInvalidInput, "quantity must be greater than 0")
	}
	if !domain.ValidReturnReason(req.Reason) {
		return "", domain.Errorf(domain.KindInvalidInput, "unknown return reason %q", req.Reason)
	}

	item, err := s.store.FindOrderItem(ctx, req.LineItemID)
	if err != nil {
		return "", err
	}
	if req.Quantity > item.Quantity {
		return "", domain.Errorf(domain.KindInvalidInput,
			"return quantity (%d) cannot exceed original order quantity (%d)", req.Quantity, item.Quantity)
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Return for order item %s", req.LineItemID)
	}

	returnOrderID, err := s.store.CreateReturnOrder(ctx, &domain.ReturnOrder{
		OrderID:     item.OrderID,
		AccountID:   item.AccountID,
		Status:      domain.ReturnStatusDraft,
		Description: description,
	})
	if err != nil {
		return "", err
	}

	_, err = s.store.CreateReturnLineItem(ctx, &domain.ReturnOrderLineItem{
		ReturnOrderID:    returnOrderID,
		OrderItemID:      item.ID,
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		QuantityReturned: req.Quantity,
		Reason:           req.Reason,
		Description:      req.Description,
	})
	if err != nil {
		// Compensating rollback: the Draft return order must not survive
		// a partial failure.
		if delErr := s.store.DeleteReturnOrder(ctx, returnOrderID); delErr != nil {
			s.logger.Error("Failed to roll back return order",
				zap.String("return_order_id", returnOrderID),
				zap.Error(delErr))
		}
		return "", err
	}

	submitted := domain.ReturnStatusSubmitted
	if err := s.store.UpdateReturnOrder(ctx, returnOrderID, domain.ReturnOrderUpdate{Status: &submitted}); err != nil {
		return "", err
	}

	s.publishReturnCreated(returnOrderID, item, req)

	s.logger.Info("Return created",
		zap.String("return_order_id", returnOrderID),
		zap.String("order_item_id", item.ID),
		zap.Int("quantity", req.Quantity),
		zap.String("reason", string(req.Reason)))

	return returnOrderID, nil
}

// EmailReturnLabel queues the return label email for an approved return.
// Sending twice is rejected; the audit flags make the operation
// idempotent-protected, not retried.
func (s *ConciergeService) EmailReturnLabel(ctx context.Context, req domain.ReturnLabelRequest) error {
	if !domain.ValidRecordID(req.ReturnOrderID) {
		return domain.Errorf(domain.KindInvalidInput,
			"invalid return order id %q: must be a 15 or 18 character record id", req.ReturnOrderID)
	}
	if !emailPattern.MatchString(req.CustomerEmail) {
		return domain.Errorf(domain.KindInvalidInput, "invalid email address %q", req.CustomerEmail)
	}

	ro, err := s.store.FindReturnOrder(ctx, req.ReturnOrderID, false)
	if err != nil {
		return err
	}

	if ro.Status != domain.ReturnStatusApproved && ro.Status != domain.ReturnStatusPartiallyFulfilled {
		return domain.Errorf(domain.KindConflict,
			"cannot send return label: return order status is %s, must be Approved or Partially Fulfilled", ro.Status)
	}
	if ro.LabelEmailSent {
		sentAt := ""
		if ro.LabelEmailSentAt != nil {
			sentAt = " on " + ro.LabelEmailSentAt.Format(time.RFC3339)
		}
		return domain.Errorf(domain.KindConflict,
			"return label has already been sent%s", sentAt)
	}

	err = s.store.QueueReturnLabelEmail(ctx, &domain.ReturnLabelEmail{
		ReturnOrderID:     ro.ID,
		ReturnOrderNumber: ro.ReturnOrderNumber,
		ToAddress:         req.CustomerEmail,
		Subject:           fmt.Sprintf("Return Label for Return Order #%s", ro.ReturnOrderNumber),
		Body:              labelEmailBody(ro),
	})
	if err != nil {
		return err
	}

	// Audit flags are best-effort: older table schemas lack them, and the
	// label is already queued either way.
	sent := true
	now := time.Now().UTC()
	if err := s.store.UpdateReturnOrder(ctx, ro.ID, domain.ReturnOrderUpdate{
		LabelEmailSent:   &sent,
		LabelEmailSentAt: &now,
	}); err != nil {
		s.logger.Warn("Label email sent but audit flags not updated",
			zap.String("return_order_id", ro.ID),
			zap.Error(err))
	}

	s.logger.Info("Return label queued",
		zap.String("return_order_id", ro.ID),
		zap.String("to", req.CustomerEmail))
	return nil
}

// CreateCaseFromReturn opens a support case for a submitted return. A
// return order acquires at most one case.
func (s *ConciergeService) CreateCaseFromReturn(ctx context.Context, returnOrderID string) (string, error) {
	if !domain.ValidRecordID(returnOrderID) {
		return "", domain.Errorf(domain.KindInvalidInput,
			"invalid return order id %q: must be a 15 or 18 character record id", returnOrderID)
	}

	ro, err := s.store.FindReturnOrder(ctx, returnOrderID, true)
	if err != nil {
		return "", err
	}

	if ro.CaseID != "" {
		return "", domain.Errorf(domain.KindConflict,
			"a case already exists for return order %s: %s", ro.ReturnOrderNumber, ro.CaseID)
	}
	switch ro.Status {
	case domain.ReturnStatusSubmitted, domain.ReturnStatusApproved, domain.ReturnStatusPartiallyFulfilled:
	default:
		return "", domain.Errorf(domain.KindConflict,
			"cannot create case for return order with status %s: must be Submitted, Approved, or Partially Fulfilled", ro.Status)
	}

	order, err := s.store.FindOrder(ctx, ro.OrderID)
	if err != nil {
		return "", err
	}

	priority := domain.CasePriorityForLineItems(ro.LineItems)

	caseID, err := s.store.CreateCase(ctx, &domain.Case{
		AccountID:   order.AccountID,
		Subject:     fmt.Sprintf("Return Order Issue - %s", ro.ReturnOrderNumber),
		Description: caseDescription(ro, order),
		Status:      domain.CaseStatusNew,
		Priority:    priority,
		Origin:      "Web",
		Type:        "Other",
	})
	if err != nil {
		return "", err
	}

	// Back-link is best-effort: the case exists regardless.
	if err := s.store.UpdateReturnOrder(ctx, ro.ID, domain.ReturnOrderUpdate{CaseID: &caseID}); err != nil {
		s.logger.Warn("Case created but return order link not established",
			zap.String("case_id", caseID),
			zap.String("return_order_id", ro.ID),
			zap.Error(err))
	}

	alertPriority := domain.AlertPriorityInfo
	if priority == domain.CasePriorityHigh {
		alertPriority = domain.AlertPriorityWarning
	}
	s.sendAlertQuietly(ctx, domain.Alert{
		Message:  fmt.Sprintf("New case created for return order %s", ro.ReturnOrderNumber),
		Priority: alertPriority,
		CaseID:   caseID,
		CustomFields: map[string]string{
			"returnOrderNumber": ro.ReturnOrderNumber,
			"orderNumber":       order.OrderNumber,
			"customerName":      order.AccountName,
			"returnStatus":      string(ro.Status),
			"items":             lineItemSummary(ro.LineItems),
			"priority":          string(priority),
		},
	})

	if s.events != nil {
		_ = s.events.PublishCaseCreated(events.CaseCreatedEvent{
			EventID:       uuid.New().String(),
			CaseID:        caseID,
			ReturnOrderID: ro.ID,
			Priority:      priority,
			Timestamp:     time.Now().UTC(),
		})
	}

	s.logger.Info("Case created from return",
		zap.String("case_id", caseID),
		zap.String("return_order_id", ro.ID),
		zap.String("priority", string(priority)))

	return caseID, nil
}

// UpdateCaseStatus moves a case through the status state machine. Closed
// is terminal: the only legal target from Closed is Closed itself, and
// even that is rejected as a no-op.
func (s *ConciergeService) UpdateCaseStatus(ctx context.Context, upd domain.CaseStatusUpdate) error {
	if !domain.ValidRecordID(upd.CaseID) {
		return domain.Errorf(domain.KindInvalidInput,
			"invalid case id %q: must be a 15 or 18 character record id", upd.CaseID)
	}
	if !domain.ValidCaseStatus(upd.Status) {
		return domain.Errorf(domain.KindInvalidInput, "unknown case status %q", upd.Status)
	}
	if upd.Priority != "" && !domain.ValidCasePriority(upd.Priority) {
		return domain.Errorf(domain.KindInvalidInput, "unknown case priority %q", upd.Priority)
	}

	kase, err := s.store.FindCase(ctx, upd.CaseID)
	if err != nil {
		return err
	}
	previous := kase.Status

	if kase.IsClosed && upd.Status != domain.CaseStatusClosed {
		return domain.Errorf(domain.KindIllegalTransition,
			"cannot reopen a closed case: create a new case instead")
	}
	if previous == upd.Status {
		return domain.Errorf(domain.KindConflict,
			"case is already in %s status", upd.Status)
	}
	if !domain.CanTransition(previous, upd.Status) {
		return domain.Errorf(domain.KindIllegalTransition,
			"invalid status transition from %s to %s", previous, upd.Status)
	}

	caseUpd := domain.CaseUpdate{Status: &upd.Status}
	if upd.Priority != "" {
		caseUpd.Priority = &upd.Priority
	}
	if upd.AssignedTo != "" {
		user, err := s.store.FindUser(ctx, upd.AssignedTo)
		if err != nil {
			return err
		}
		caseUpd.OwnerID = &user.ID
	}

	if err := s.store.UpdateCase(ctx, upd.CaseID, caseUpd); err != nil {
		return err
	}

	if upd.Reason != "" {
		comment := &domain.CaseComment{
			CaseID:    upd.CaseID,
			Body:      fmt.Sprintf("Status changed from %s to %s. Reason: %s", previous, upd.Status, upd.Reason),
			Published: true,
		}
		if err := s.store.CreateCaseComment(ctx, comment); err != nil {
			return err
		}
	}

	alertPriority := domain.AlertPriorityInfo
	if upd.Status == domain.CaseStatusEscalated {
		alertPriority = domain.AlertPriorityWarning
	}
	s.sendAlertQuietly(ctx, domain.Alert{
		Message:  fmt.Sprintf("Case %s status updated from %s to %s", kase.CaseNumber, previous, upd.Status),
		Priority: alertPriority,
		CaseID:   upd.CaseID,
		CustomFields: map[string]string{
			"caseNumber":     kase.CaseNumber,
			"subject":        kase.Subject,
			"previousStatus": string(previous),
			"newStatus":      string(upd.Status),
			"reason":         upd.Reason,
		},
	})

	if s.events != nil {
		_ = s.events.PublishCaseStatusChanged(events.CaseStatusChangedEvent{
			EventID:        uuid.New().String(),
			CaseID:         upd.CaseID,
			PreviousStatus: previous,
			NewStatus:      upd.Status,
			Reason:         upd.Reason,
			Timestamp:      time.Now().UTC(),
		})
	}

	s.logger.Info("Case status updated",
		zap.String("case_id", upd.CaseID),
		zap.String("previous_status", string(previous)),
		zap.String("new_status", string(upd.Status)))

	return nil
}

// SendAlert forwards one alert to the notification channel. The boolean is
// the whole contract: alerting is never critical path.
func (s *ConciergeService) SendAlert(ctx context.Context, alert domain.Alert) bool {
	if s.notifier == nil {
		return false
	}
	return s.notifier.Send(ctx, alert)
}

func (s *ConciergeService) sendAlertQuietly(ctx context.Context, alert domain.Alert) {
	if s.notifier == nil {
		return
	}
	if !s.notifier.Send(ctx, alert) {
		s.logger.Debug("Side-channel alert not delivered",
			zap.String("case_id", alert.CaseID))
	}
}

func (s *ConciergeService) publishReturnCreated(returnOrderID string, item *domain.OrderItem, req domain.CreateReturnRequest) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishReturnCreated(events.ReturnCreatedEvent{
		EventID:       uuid.New().String(),
		ReturnOrderID: returnOrderID,
		OrderID:       item.OrderID,
		OrderItemID:   item.ID,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Timestamp:     time.Now().UTC(),
	})
}

func caseDescription(ro *domain.ReturnOrder, order *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case created for return order %s.\n\n", ro.ReturnOrderNumber)
	fmt.Fprintf(&b, "Order: %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Return Status: %s\n", ro.Status)
	if ro.Description != "" {
		fmt.Fprintf(&b, "Return Description: %s\n", ro.Description)
	}
	if len(ro.LineItems) > 0 {
		b.WriteString("\nReturning Items:\n")
		for i, line := range ro.LineItems {
			name := line.ProductName
			if name == "" {
				name = "Unknown Product"
			}
			fmt.Fprintf(&b, "%d. %s (Qty: %d) - Reason: %s\n", i+1, name, line.QuantityReturned, line.Reason)
		}
	}
	return b.String()
}

func lineItemSummary(items []domain.ReturnOrderLineItem) string {
	if len(items) == 0 {
		return "No items"
	}
	parts := make([]string, 0, len(items))
	for _, line := range items {
		name := line.ProductName
		if name == "" {
			name = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("%s (%d)", name, line.QuantityReturned))
	}
	return strings.Join(parts, ", ")
}

func labelEmailBody(ro *domain.ReturnOrder) string {
	description := ro.Description
	if description == "" {
		description = "N/A"
	}
	return fmt.Sprintf(
		"Dear Customer,\n\n"+
			"Please find attached your return label for Return Order #%s.\n\n"+
			"Return Details:\n"+
			"- Return Order Number: %s\n"+
			"- Status: %s\n"+
			"- Description: %s\n\n"+
			"Instructions:\n"+
			"1. Print this return label\n"+
			"2. Package your items securely\n"+
			"3. Attach the label to your return package\n"+
			"4. Drop off at any authorized shipping location\n\n"+
			"Please allow 3-5 business days for processing once we receive your return.\n\n"+
			"Thank you for your business.\n\n"+
			"Best regards,\nCustomer Service Team\n",
		ro.ReturnOrderNumber, ro.ReturnOrderNumber, ro.Status, description)
}
