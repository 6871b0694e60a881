package domain

import (
	"time"
)

type ReturnOrderStatus string

const (
	ReturnStatusDraft              ReturnOrderStatus = "Draft"
	ReturnStatusSubmitted          ReturnOrderStatus = "Submitted"
	ReturnStatusApproved           ReturnOrderStatus = "Approved"
	ReturnStatusPartiallyFulfilled ReturnOrderStatus = "Partially Fulfilled"
	ReturnStatusClosed             ReturnOrderStatus = "Closed"
)

type CaseStatus string

const (
	CaseStatusNew       CaseStatus = "New"
	CaseStatusWorking   CaseStatus = "Working"
	CaseStatusEscalated CaseStatus = "Escalated"
	CaseStatusClosed    CaseStatus = "Closed"
)

type CasePriority string

const (
	CasePriorityLow      CasePriority = "Low"
	CasePriorityMedium   CasePriority = "Medium"
	CasePriorityHigh     CasePriority = "High"
	CasePriorityCritical CasePriority = "Critical"
)

type ReturnReason string

const (
	ReasonDefective    ReturnReason = "Defective"
	ReasonDamaged      ReturnReason = "Damaged"
	ReasonWrongItem    ReturnReason = "Wrong Item"
	ReasonNotNeeded    ReturnReason = "Not Needed"
	ReasonQualityIssue ReturnReason = "Quality Issue"
	ReasonSizeColor    ReturnReason = "Size/Color"
	ReasonOther        ReturnReason = "Other"
)

type AlertPriority string

const (
	AlertPriorityInfo     AlertPriority = "info"
	AlertPriorityWarning  AlertPriority = "warning"
	AlertPriorityError    AlertPriority = "error"
	AlertPriorityCritical AlertPriority = "critical"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Order is read-only to this service except for the reverse link a
// ReturnOrder establishes when a Case is attached.
type Order struct {
	ID                string    `json:"id"`
	OrderNumber       string    `json:"order_number"`
	AccountID         string    `json:"account_id"`
	AccountName       string    `json:"account_name,omitempty"`
	Status            string    `json:"status"`
	Carrier           string    `json:"carrier,omitempty"`
	TrackingNumber    string    `json:"tracking_number,omitempty"`
	EstimatedDelivery string    `json:"estimated_delivery,omitempty"`
	ShippingAddress   *Address  `json:"shipping_address,omitempty"`
	TotalAmount       float64   `json:"total_amount,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	AccountID   string  `json:"account_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type ReturnOrder struct {
	ID                string                `json:"id"`
	ReturnOrderNumber string                `json:"return_order_number"`
	OrderID           string                `json:"order_id"`
	AccountID         string                `json:"account_id"`
	CaseID            string                `json:"case_id,omitempty"`
	Status            ReturnOrderStatus     `json:"status"`
	Description       string                `json:"description,omitempty"`
	LabelEmailSent    bool                  `json:"label_email_sent"`
	LabelEmailSentAt  *time.Time            `json:"label_email_sent_at,omitempty"`
	LineItems         []ReturnOrderLineItem `json:"line_items,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type ReturnOrderLineItem struct {
	ID               string       `json:"id"`
	ReturnOrderID    string       `json:"return_order_id"`
	OrderItemID      string       `json:"order_item_id"`
	ProductID        string       `json:"product_id"`
	ProductName      string       `json:"product_name"`
	QuantityReturned int          `json:"quantity_returned"`
	Reason           ReturnReason `json:"reason"`
	Description      string       `json:"description,omitempty"`
}

type Case struct {
	ID          string       `json:"id"`
	CaseNumber  string       `json:"case_number"`
	AccountID   string       `json:"account_id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description,omitempty"`
	Status      CaseStatus   `json:"status"`
	Priority    CasePriority `json:"priority"`
	OwnerID     string       `json:"owner_id,omitempty"`
	Origin      string       `json:"origin,omitempty"`
	Type        string       `json:"type,omitempty"`
	IsClosed    bool         `json:"is_closed"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type CaseComment struct {
	CaseID    string    `json:"case_id"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Alert is ephemeral: constructed, forwarded to the notification webhook,
// discarded. Never persisted. Field tags follow the tool argument shape.
type Alert struct {
	Message      string            `json:"message"`
	Priority     AlertPriority     `json:"priority,omitempty"`
	CaseID       string            `json:"caseId,omitempty"`
	Channel      string            `json:"channel,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// ReturnLabelEmail is the outbox record the gateway queues for the
// downstream mailer. The engine never talks SMTP.
type ReturnLabelEmail struct {
	ID                string    `json:"id"`
	ReturnOrderID     string    `json:"return_order_id"`
	ReturnOrderNumber string    `json:"return_order_number"`
	ToAddress         string    `json:"to_address"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	QueuedAt          time.Time `json:"queued_at"`
}

// OrderStatusResult is the canonical shipping/tracking-oriented shape
// returned by the order status lookup.
type OrderStatusResult struct {
	OrderID           string   `json:"order_id"`
	Status            string   `json:"status"`
	Carrier           string   `json:"carrier,omitempty"`
	TrackingNumber    string   `json:"tracking_number,omitempty"`
	EstimatedDelivery string   `json:"estimated_delivery,omitempty"`
	ShippingAddress   *Address `json:"shipping_address,omitempty"`
}

// ReturnOrderUpdate is a partial update applied to a ReturnOrder. Nil
// fields are left untouched.
type ReturnOrderUpdate struct {
	Status           *ReturnOrderStatus
	CaseID           *string
	LabelEmailSent   *bool
	LabelEmailSentAt *time.Time
}

// CaseUpdate is a partial update applied to a Case. Nil fields are left
// untouched.
type CaseUpdate struct {
	Status   *CaseStatus
	Priority *CasePriority
	OwnerID  *string
}

type CreateReturnRequest struct {
	OrderID     string       `json:"orderId"`
	LineItemID  string       `json:"lineItemId"`
	Reason      ReturnReason `json:"reason"`
	Quantity    int          `json:"quantity"`
	Description string       `json:"description,omitempty"`
}

type ReturnLabelRequest struct {
	ReturnOrderID string `json:"returnOrderId"`
	CustomerEmail string `json:"customerEmail"`
}

type CaseStatusUpdate struct {
	CaseID     string       `json:"caseId"`
	Status     CaseStatus   `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Priority   CasePriority `json:"priority,omitempty"`
	AssignedTo string       `json:"assignedTo,omitempty"`
}

// ValidReturnReason reports whether r is one of the fixed reason codes.
func ValidReturnReason(r ReturnReason) bool {
	switch r {
	case ReasonDefective, ReasonDamaged, ReasonWrongItem, ReasonNotNeeded,
		ReasonQualityIssue, ReasonSizeColor, ReasonOther:
		return true
	}
	return false
}

// ValidCaseStatus reports whether s is one of the four case statuses.
func ValidCaseStatus(s CaseStatus) bool {
	switch s {
	case CaseStatusNew, CaseStatusWorking, CaseStatusEscalated, CaseStatusClosed:
		return true
	}
	return false
}

// ValidCasePriority reports whether p is one of the four case priorities.
func ValidCasePriority(p CasePriority) bool {
	switch p {
	case CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityCritical:
		return true
	}
	return false
}
