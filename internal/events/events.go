package events

import (
	"time"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
)

type ReturnCreatedEvent struct {
	EventID       string              `json:"event_id"`
	ReturnOrderID string              `json:"return_order_id"`
	OrderID       string              `json:"order_id"`
	OrderItemID   string              `json:"order_item_id"`
	Quantity      int                 `json:"quantity"`
	Reason        domain.ReturnReason `json:"reason"`
	Timestamp     time.Time           `json:"timestamp"`
}

type CaseCreatedEvent struct {
	EventID       string              `json:"event_id"`
	CaseID        string              `json:"case_id"`
	ReturnOrderID string              `json:"return_order_id"`
	Priority      domain.CasePriority `json:"priority"`
	Timestamp     time.Time           `json:"timestamp"`
}

type CaseStatusChangedEvent struct {
	EventID        string            `json:"event_id"`
	CaseID         string            `json:"case_id"`
	PreviousStatus domain.CaseStatus `json:"previous_status"`
	NewStatus      domain.CaseStatus `json:"new_status"`
	Reason         string            `json:"reason,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}
