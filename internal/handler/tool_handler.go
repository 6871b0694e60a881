package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JSON-RPC error codes. Engine error kinds map onto the -32000 range.
const (
	codeServerError       = -32000
	codeNotFound          = -32001
	codeConflict          = -32002
	codeIllegalTransition = -32003
	codeMethodNotFound    = -32601
	codeInvalidParams     = -32602
	codeParseError        = -32700
)

// ConciergeAPI is the slice of the workflow engine the facade renders.
type ConciergeAPI interface {
	GetOrderStatus(ctx context.Context, identifier string) (*domain.OrderStatusResult, error)
	CreateReturn(ctx context.Context, req domain.CreateReturnRequest) (string, error)
	EmailReturnLabel(ctx context.Context, req domain.ReturnLabelRequest) error
	CreateCaseFromReturn(ctx context.Context, returnOrderID string) (string, error)
	UpdateCaseStatus(ctx context.Context, upd domain.CaseStatusUpdate) error
	SendAlert(ctx context.Context, alert domain.Alert) bool
}

// Request is the JSON-RPC request envelope.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  *json.RawMessage `json:"params"`
	ID      interface{}      `json:"id"`
}

// Response is the JSON-RPC response envelope.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolDescriptor describes one callable tool.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolResult is the content-wrapped result shape tool callers expect.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ToolHandler struct {
	api    ConciergeAPI
	logger *zap.Logger
}

func NewToolHandler(api ConciergeAPI, logger *zap.Logger) *ToolHandler {
	return &ToolHandler{api: api, logger: logger}
}

// Handle serves POST /mcp.
func (h *ToolHandler) Handle(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, errorResponse(nil, codeParseError, fmt.Sprintf("decode request: %v", err)))
		return
	}

	requestID := c.GetString("request_id")

	var resp Response
	switch req.Method {
	case "tools/list":
		resp = Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": toolDescriptors()}}
	case "tools/call":
		resp = h.handleToolCall(c.Request.Context(), req, requestID)
	default:
		resp = errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method %s not found", req.Method))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ToolHandler) handleToolCall(ctx context.Context, req Request, requestID string) Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if req.Params == nil {
		return errorResponse(req.ID, codeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "missing required field: name")
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	text, err := h.invokeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		h.logger.Warn("Tool call failed",
			zap.String("tool", params.Name),
			zap.String("request_id", requestID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
		return errorResponse(req.ID, codeForError(err), err.Error())
	}

	h.logger.Info("Tool call succeeded",
		zap.String("tool", params.Name),
		zap.String("request_id", requestID))

	return Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}},
	}
}

func (h *ToolHandler) invokeTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch name {
	case "check_order_status":
		var in struct {
			OrderID string `json:"orderId"`
		}
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		if in.OrderID == "" {
			return "", domain.Errorf(domain.KindInvalidInput, "orderId is required")
		}
		status, err := h.api.GetOrderStatus(ctx, in.OrderID)
		if err != nil {
			return "", err
		}
		return renderOrderStatus(status), nil

	case "create_return":
		var in domain.CreateReturnRequest
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		returnOrderID, err := h.api.CreateReturn(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Return created successfully with ID: %s. The return request has been submitted and will be processed within 1-2 business days.", returnOrderID), nil

	case "email_return_label":
		var in domain.ReturnLabelRequest
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		if err := h.api.EmailReturnLabel(ctx, in); err != nil {
			return "", err
		}
		return fmt.Sprintf("Return label has been emailed to %s. Please check your inbox (and spam folder) for the return shipping label.", in.CustomerEmail), nil

	case "create_case_from_return":
		var in struct {
			ReturnOrderID string `json:"returnOrderId"`
		}
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		if in.ReturnOrderID == "" {
			return "", domain.Errorf(domain.KindInvalidInput, "returnOrderId is required")
		}
		caseID, err := h.api.CreateCaseFromReturn(ctx, in.ReturnOrderID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Case created successfully with ID: %s.", caseID), nil

	case "update_case_status":
		var in domain.CaseStatusUpdate
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		if err := h.api.UpdateCaseStatus(ctx, in); err != nil {
			return "", err
		}
		return fmt.Sprintf("Case %s status updated to %s successfully.", in.CaseID, in.Status), nil

	case "send_alert":
		var in domain.Alert
		if err := unmarshalArgs(args, &in); err != nil {
			return "", err
		}
		if in.Message == "" {
			return "", domain.Errorf(domain.KindInvalidInput, "message is required")
		}
		if h.api.SendAlert(ctx, in) {
			return "Alert sent successfully.", nil
		}
		return "Alert could not be delivered.", nil

	default:
		return "", unknownToolError{name: name}
	}
}

// unknownToolError maps to the method-not-found code rather than an
// engine error kind.
type unknownToolError struct{ name string }

func (e unknownToolError) Error() string { return "unknown tool: " + e.name }

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return domain.WrapError(domain.KindInvalidInput, err, "invalid tool arguments")
	}
	return nil
}

func codeForError(err error) int {
	var unknown unknownToolError
	if errors.As(err, &unknown) {
		return codeMethodNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return codeNotFound
	case domain.KindInvalidInput:
		return codeInvalidParams
	case domain.KindConflict:
		return codeConflict
	case domain.KindIllegalTransition:
		return codeIllegalTransition
	default:
		return codeServerError
	}
}

func errorResponse(id interface{}, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

func renderOrderStatus(status *domain.OrderStatusResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s status: %s", status.OrderID, status.Status)
	if status.Carrier != "" {
		fmt.Fprintf(&b, "\nCarrier: %s", status.Carrier)
	}
	if status.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking Number: %s", status.TrackingNumber)
	}
	if status.EstimatedDelivery != "" {
		fmt.Fprintf(&b, "\nEstimated Delivery: %s", status.EstimatedDelivery)
	}
	if addr := status.ShippingAddress; addr != nil {
		fmt.Fprintf(&b, "\nShipping to: %s, %s, %s %s, %s",
			addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country)
	}
	return b.String()
}

func toolDescriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "check_order_status",
			Description: "Check an order's shipping status, carrier, tracking number, and ETA",
			InputSchema: objectSchema(map[string]interface{}{
				"orderId": map[string]interface{}{"type": "string", "description": "The order ID or order number to check"},
			}, "orderId"),
		},
		{
			Name:        "create_return",
			Description: "Create a return (RMA) for a single line item in an order",
			InputSchema: objectSchema(map[string]interface{}{
				"orderId":     map[string]interface{}{"type": "string", "description": "The order ID containing the item to return"},
				"lineItemId":  map[string]interface{}{"type": "string", "description": "The specific line item ID to return"},
				"reason":      map[string]interface{}{"type": "string", "description": "Reason for the return", "enum": []string{"Defective", "Damaged", "Wrong Item", "Not Needed", "Quality Issue", "Size/Color", "Other"}},
				"quantity":    map[string]interface{}{"type": "number", "description": "Quantity to return", "minimum": 1},
				"description": map[string]interface{}{"type": "string", "description": "Optional description for the return"},
			}, "orderId", "lineItemId", "reason", "quantity"),
		},
		{
			Name:        "email_return_label",
			Description: "Email the customer a PDF return label that has already been generated",
			InputSchema: objectSchema(map[string]interface{}{
				"returnOrderId": map[string]interface{}{"type": "string", "description": "The return order ID for which to send the label"},
				"customerEmail": map[string]interface{}{"type": "string", "description": "Customer email address to send the label to"},
			}, "returnOrderId", "customerEmail"),
		},
		{
			Name:        "create_case_from_return",
			Description: "Create a support case linked to an existing return order",
			InputSchema: objectSchema(map[string]interface{}{
				"returnOrderId": map[string]interface{}{"type": "string", "description": "The return order to open a case for"},
			}, "returnOrderId"),
		},
		{
			Name:        "update_case_status",
			Description: "Update a case's status with optional priority, owner, and audit reason",
			InputSchema: objectSchema(map[string]interface{}{
				"caseId":     map[string]interface{}{"type": "string", "description": "The case ID to update"},
				"status":     map[string]interface{}{"type": "string", "enum": []string{"New", "Working", "Escalated", "Closed"}},
				"reason":     map[string]interface{}{"type": "string", "description": "Reason for the status change, recorded as a case comment"},
				"priority":   map[string]interface{}{"type": "string", "enum": []string{"Low", "Medium", "High", "Critical"}},
				"assignedTo": map[string]interface{}{"type": "string", "description": "User ID or username to assign the case to"},
			}, "caseId", "status"),
		},
		{
			Name:        "send_alert",
			Description: "Send an alert to the customer-service notification channel",
			InputSchema: objectSchema(map[string]interface{}{
				"message":      map[string]interface{}{"type": "string", "description": "Alert text, at most 4000 characters"},
				"priority":     map[string]interface{}{"type": "string", "enum": []string{"info", "warning", "error", "critical"}},
				"caseId":       map[string]interface{}{"type": "string", "description": "Optional case reference"},
				"customFields": map[string]interface{}{"type": "object", "description": "Optional key/value context rendered into the alert"},
			}, "message"),
		},
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
