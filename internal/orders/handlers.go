package orders

import (
	"errors"

	"github.com/boursa/brokerage-api/internal/auth"
	"github.com/boursa/brokerage-api/internal/documents"
	"github.com/boursa/brokerage-api/internal/types"
	"github.com/boursa/brokerage-api/pkg/response"
	"github.com/gin-gonic/gin"
)

// Route clients are redirected to once their bulletin is accepted
const confirmationRoute = "/orders/congratulations"

// GinHandlers contains HTTP handlers for order and workflow endpoints
type GinHandlers struct {
	service   *Service
	documents *documents.Service
}

// NewGinHandlers creates a new set of HTTP handlers for order endpoints
func NewGinHandlers(service *Service, documentService *documents.Service) *GinHandlers {
	return &GinHandlers{
		service:   service,
		documents: documentService,
	}
}

func clientIDFromContext(c *gin.Context) string {
	if clientID := c.GetString("clientID"); clientID != "" {
		return clientID
	}
	if claims, exists := c.Get("claims"); exists {
		return auth.GetClientID(claims)
	}
	return ""
}

// CreateOrderHandler handles POST requests creating orders directly
// Requires a valid JWT token and idempotency key in headers
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		var req types.OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, fields, err := h.service.CreateOrder(&req, idempotencyKey, clientIDFromContext(c))
		switch {
		case errors.Is(err, ErrValidationFailed):
			response.ValidationFailed(c, fields)
		case errors.Is(err, ErrSecurityNotFound), errors.Is(err, ErrClientNotFound):
			response.NotFound(c, err.Error())
		case err != nil:
			response.InternalError(c, err.Error())
		default:
			response.Success(c, order)
		}
	}
}

// GetOrderStatusHandler handles GET requests to retrieve order status
// Requires a valid JWT token
// URL parameter: order_id
func (h *GinHandlers) GetOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := clientIDFromContext(c)
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		orderID := c.Param("order_id")
		if orderID == "" {
			response.BadRequest(c, "Order ID is required")
			return
		}

		order, err := h.service.GetOrderForOwner(orderID, clientID)
		if err != nil || order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// StartWorkflowHandler handles POST requests opening an order-composition session
// Request body: {"market_type": "P"|"S"}
func (h *GinHandlers) StartWorkflowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			MarketType types.Market `json:"market_type"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workflow, err := h.service.StartWorkflow(clientIDFromContext(c), body.MarketType)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.Success(c, workflow)
	}
}

// GetWorkflowHandler handles GET requests for a workflow's current state
// URL parameter: workflow_id
func (h *GinHandlers) GetWorkflowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workflow, err := h.service.GetWorkflow(c.Param("workflow_id"), clientIDFromContext(c))
		if errors.Is(err, ErrWorkflowNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.Handle(c, workflow, err)
	}
}

// handleTransition maps workflow step outcomes onto responses
func handleTransition(c *gin.Context, workflow *Workflow, err error) {
	var invalid *ErrInvalidTransition
	switch {
	case errors.Is(err, ErrWorkflowNotFound),
		errors.Is(err, ErrSecurityNotFound),
		errors.Is(err, ErrClientNotFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &invalid):
		response.Conflict(c, err.Error())
	case err != nil:
		response.BadRequest(c, err.Error())
	default:
		response.Success(c, workflow)
	}
}

// SelectSecurityHandler handles POST requests applying the security-selection step
// Request body: {"stock_id": "..."}
func (h *GinHandlers) SelectSecurityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			StockID string `json:"stock_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workflow, err := h.service.AdvanceSecurity(c.Param("workflow_id"), clientIDFromContext(c), body.StockID)
		handleTransition(c, workflow, err)
	}
}

// SelectClientHandler handles POST requests applying the client-selection step
// Request body: {"client_id": "..."}
func (h *GinHandlers) SelectClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ClientID string `json:"client_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workflow, err := h.service.AdvanceClient(c.Param("workflow_id"), clientIDFromContext(c), body.ClientID)
		handleTransition(c, workflow, err)
	}
}

// CaptureSubscriberHandler handles POST requests applying the
// subscriber-identity step. Setting beneficial_owner auto-fills the identity
// from the selected client record.
func (h *GinHandlers) CaptureSubscriberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			types.Subscriber
			BeneficialOwner bool `json:"beneficial_owner"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workflow, err := h.service.AdvanceSubscriber(
			c.Param("workflow_id"), clientIDFromContext(c), body.Subscriber, body.BeneficialOwner)
		handleTransition(c, workflow, err)
	}
}

// StepBackHandler handles POST requests returning a workflow to its prior step
func (h *GinHandlers) StepBackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workflow, err := h.service.StepBack(c.Param("workflow_id"), clientIDFromContext(c))
		handleTransition(c, workflow, err)
	}
}

// SubmitWorkflowHandler handles POST requests submitting the composed order.
// Invalid drafts keep the workflow in order composition and return inline
// field errors.
func (h *GinHandlers) SubmitWorkflowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		workflow, fields, err := h.service.SubmitWorkflow(c.Param("workflow_id"), clientIDFromContext(c), &req)
		if errors.Is(err, ErrValidationFailed) {
			response.ValidationFailed(c, fields)
			return
		}
		if err != nil {
			handleTransition(c, workflow, err)
			return
		}

		response.Success(c, gin.H{
			"workflow":   workflow,
			"order_id":   workflow.CreatedOrderID,
			"visa_cosob": h.service.VisaCOSOB(),
		})
	}
}

// UploadBulletinHandler handles POST requests attaching the signed bulletin.
// The file is validated before any write; on success the order is confirmed
// and the client redirected to the confirmation route.
// Multipart form field: file
func (h *GinHandlers) UploadBulletinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		workflow, err := h.service.GetWorkflow(c.Param("workflow_id"), clientIDFromContext(c))
		if err != nil {
			handleTransition(c, nil, err)
			return
		}
		if workflow.State != StateAwaitingDocument {
			response.Conflict(c, "workflow is not awaiting a document upload")
			return
		}

		header, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, "A file field is required")
			return
		}

		document, err := h.documents.Store(workflow.CreatedOrderID, header)
		if err != nil {
			if errors.Is(err, documents.ErrFileTooLarge) ||
				errors.Is(err, documents.ErrInvalidFileType) ||
				errors.Is(err, documents.ErrEmptyFile) {
				response.BadRequest(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}

		workflow, err = h.service.ConfirmBulletin(workflow.WorkflowID, clientIDFromContext(c))
		if err != nil {
			handleTransition(c, workflow, err)
			return
		}

		response.Success(c, gin.H{
			"workflow": workflow,
			"document": document,
			"redirect": confirmationRoute,
		})
	}
}
