package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI stubs the workflow engine with per-test function fields.
type fakeAPI struct {
	getOrderStatus       func(ctx context.Context, identifier string) (*domain.OrderStatusResult, error)
	createReturn         func(ctx context.Context, req domain.CreateReturnRequest) (string, error)
	emailReturnLabel     func(ctx context.Context, req domain.ReturnLabelRequest) error
	createCaseFromReturn func(ctx context.Context, returnOrderID string) (string, error)
	updateCaseStatus     func(ctx context.Context, upd domain.CaseStatusUpdate) error
	sendAlert            func(ctx context.Context, alert domain.Alert) bool
}

func (f *fakeAPI) GetOrderStatus(ctx context.Context, identifier string) (*domain.OrderStatusResult, error) {
	return f.getOrderStatus(ctx, identifier)
}

func (f *fakeAPI) CreateReturn(ctx context.Context, req domain.CreateReturnRequest) (string, error) {
	return f.createReturn(ctx, req)
}

func (f *fakeAPI) EmailReturnLabel(ctx context.Context, req domain.ReturnLabelRequest) error {
	return f.emailReturnLabel(ctx, req)
}

func (f *fakeAPI) CreateCaseFromReturn(ctx context.Context, returnOrderID string) (string, error) {
	return f.createCaseFromReturn(ctx, returnOrderID)
}

func (f *fakeAPI) UpdateCaseStatus(ctx context.Context, upd domain.CaseStatusUpdate) error {
	return f.updateCaseStatus(ctx, upd)
}

func (f *fakeAPI) SendAlert(ctx context.Context, alert domain.Alert) bool {
	return f.sendAlert(ctx, alert)
}

func newTestRouter(api ConciergeAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/mcp", NewToolHandler(api, zap.NewNop()).Handle)
	return router
}

func post(t *testing.T, router *gin.Engine, body string) Response {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func callTool(t *testing.T, router *gin.Engine, name string, args map[string]interface{}) Response {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": name, "arguments": args},
	})
	require.NoError(t, err)
	return post(t, router, string(body))
}

func resultText(t *testing.T, resp Response) string {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error")
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result.Content[0].Text
}

func TestToolsList(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := post(t, router, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		Tools []ToolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Tools, 6)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	assert.ElementsMatch(t, []string{
		"check_order_status",
		"create_return",
		"email_return_label",
		"create_case_from_return",
		"update_case_status",
		"send_alert",
	}, names)
}

func TestUnknownMethod(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := post(t, router, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestUnknownTool(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := callTool(t, router, "delete_order", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "delete_order")
}

func TestMalformedRequest(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := post(t, router, `{"jsonrpc":`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestMissingParams(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := post(t, router, `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = post(t, router, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestBadArgumentTypes(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := callTool(t, router, "create_return", map[string]interface{}{
		"orderId":    "O1",
		"lineItemId": "00Q000000000001AAA",
		"reason":     "Defective",
		"quantity":   "two",
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestCheckOrderStatus(t *testing.T) {
	api := &fakeAPI{
		getOrderStatus: func(_ context.Context, identifier string) (*domain.OrderStatusResult, error) {
			assert.Equal(t, "ORD-1001", identifier)
			return &domain.OrderStatusResult{
				OrderID:        "ORD-1001",
				Status:         "Shipped",
				Carrier:        "UPS",
				TrackingNumber: "1Z999",
			}, nil
		},
	}
	router := newTestRouter(api)

	resp := callTool(t, router, "check_order_status", map[string]interface{}{"orderId": "ORD-1001"})
	text := resultText(t, resp)
	assert.Contains(t, text, "Order ORD-1001 status: Shipped")
	assert.Contains(t, text, "Carrier: UPS")
	assert.Contains(t, text, "Tracking Number: 1Z999")
	assert.NotContains(t, text, "Estimated Delivery")
}

func TestCheckOrderStatusMissingArgument(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := callTool(t, router, "check_order_status", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", domain.Errorf(domain.KindNotFound, "order not found"), codeNotFound},
		{"invalid input", domain.Errorf(domain.KindInvalidInput, "bad quantity"), codeInvalidParams},
		{"conflict", domain.Errorf(domain.KindConflict, "label already sent"), codeConflict},
		{"illegal transition", domain.Errorf(domain.KindIllegalTransition, "cannot reopen"), codeIllegalTransition},
		{"connectivity", domain.Errorf(domain.KindConnectivity, "store unreachable"), codeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				getOrderStatus: func(context.Context, string) (*domain.OrderStatusResult, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(api)

			resp := callTool(t, router, "check_order_status", map[string]interface{}{"orderId": "ORD-1001"})
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCreateReturnResponseText(t *testing.T) {
	api := &fakeAPI{
		createReturn: func(_ context.Context, req domain.CreateReturnRequest) (string, error) {
			assert.Equal(t, "O1", req.OrderID)
			assert.Equal(t, 2, req.Quantity)
			assert.Equal(t, domain.ReasonDefective, req.Reason)
			return "801000000000001AAA", nil
		},
	}
	router := newTestRouter(api)

	resp := callTool(t, router, "create_return", map[string]interface{}{
		"orderId":    "O1",
		"lineItemId": "00Q000000000001AAA",
		"reason":     "Defective",
		"quantity":   2,
	})
	assert.Contains(t, resultText(t, resp), "Return created successfully with ID: 801000000000001AAA")
}

func TestEmailReturnLabelResponseText(t *testing.T) {
	api := &fakeAPI{
		emailReturnLabel: func(_ context.Context, req domain.ReturnLabelRequest) error {
			assert.Equal(t, "801000000000001AAA", req.ReturnOrderID)
			return nil
		},
	}
	router := newTestRouter(api)

	resp := callTool(t, router, "email_return_label", map[string]interface{}{
		"returnOrderId": "801000000000001AAA",
		"customerEmail": "jane@example.com",
	})
	assert.Contains(t, resultText(t, resp), "Return label has been emailed to jane@example.com")
}

func TestCreateCaseFromReturnResponseText(t *testing.T) {
	api := &fakeAPI{
		createCaseFromReturn: func(_ context.Context, returnOrderID string) (string, error) {
			assert.Equal(t, "801000000000001AAA", returnOrderID)
			return "500000000000001AAA", nil
		},
	}
	router := newTestRouter(api)

	resp := callTool(t, router, "create_case_from_return", map[string]interface{}{
		"returnOrderId": "801000000000001AAA",
	})
	assert.Contains(t, resultText(t, resp), "Case created successfully with ID: 500000000000001AAA")
}

func TestUpdateCaseStatusResponseText(t *testing.T) {
	api := &fakeAPI{
		updateCaseStatus: func(_ context.Context, upd domain.CaseStatusUpdate) error {
			assert.Equal(t, domain.CaseStatusEscalated, upd.Status)
			assert.Equal(t, "customer called twice", upd.Reason)
			return nil
		},
	}
	router := newTestRouter(api)

	resp := callTool(t, router, "update_case_status", map[string]interface{}{
		"caseId": "500000000000001AAA",
		"status": "Escalated",
		"reason": "customer called twice",
	})
	assert.Contains(t, resultText(t, resp), "status updated to Escalated")
}

func TestSendAlertResponseText(t *testing.T) {
	delivered := true
	api := &fakeAPI{
		sendAlert: func(_ context.Context, alert domain.Alert) bool {
			assert.Equal(t, "Customer escalation on ORD-1001", alert.Message)
			return delivered
		},
	}
	router := newTestRouter(api)

	args := map[string]interface{}{"message": "Customer escalation on ORD-1001", "priority": "warning"}

	resp := callTool(t, router, "send_alert", args)
	assert.Equal(t, "Alert sent successfully.", resultText(t, resp))

	delivered = false
	resp = callTool(t, router, "send_alert", args)
	assert.Equal(t, "Alert could not be delivered.", resultText(t, resp))
}

func TestSendAlertRequiresMessage(t *testing.T) {
	router := newTestRouter(&fakeAPI{})

	resp := callTool(t, router, "send_alert", map[string]interface{}{"priority": "info"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}
