package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/boursa/brokerage-api/internal/clients"
	"github.com/boursa/brokerage-api/internal/pricing"
	"github.com/boursa/brokerage-api/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrSecurityNotFound = errors.New("security not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrOrderNotPending  = errors.New("order is not awaiting its signed bulletin")

	// ErrValidationFailed signals that the returned field map carries the details
	ErrValidationFailed = errors.New("order validation failed")
)

// Service handles order composition, validation, pricing and submission
type Service struct {
	db        *Database
	rates     pricing.Rates
	visaCOSOB string
}

// NewService creates a new order service with the given database connection,
// commission rates and COSOB visa reference
func NewService(gormDB *gorm.DB, rates pricing.Rates, visaCOSOB string) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		rates:     rates,
		visaCOSOB: visaCOSOB,
	}
}

// VisaCOSOB returns the regulatory approval reference shown on order forms
func (s *Service) VisaCOSOB() string {
	return s.visaCOSOB
}

// GetDB exposes the order database for the expiry processor
func (s *Service) GetDB() *Database {
	return s.db
}

// CreateOrder validates, prices and persists an order with idempotency
// support. A non-empty field map means the draft failed validation; the order
// is only created when the map is empty and the error nil. ownerID is the
// authenticated principal submitting the order.
func (s *Service) CreateOrder(req *types.OrderRequest, idempotencyKey, ownerID string) (*types.Order, map[string]string, error) {
	// Check for existing idempotency record
	record, err := s.db.GetIdempotencyRecord(idempotencyKey)
	if err == nil && record != nil && record.IdempotencyKey != "" && record.ExpiresAt.After(time.Now()) {
		existing, err := s.db.GetOrder(record.ResourceID)
		if err != nil {
			return nil, nil, err
		}
		if existing == nil {
			return nil, nil, ErrOrderNotFound
		}
		return existing, nil, nil
	}

	security, err := s.db.GetSecurity(req.StockID)
	if err != nil {
		return nil, nil, err
	}
	if security == nil {
		return nil, nil, ErrSecurityNotFound
	}

	client, err := s.db.GetClient(req.ClientID)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, ErrClientNotFound
	}

	if fields := ValidateDraft(req, security.Quantity, time.Now()); len(fields) > 0 {
		return nil, fields, ErrValidationFailed
	}

	// Market orders price at face value, limit orders at the given price
	unitPrice := security.FaceValue
	if req.PriceCondition == types.PriceLimit {
		unitPrice = req.Price
	}
	rate := s.rates.For(security.Type, security.Government)
	snapshot := pricing.Compute(req.OperationType, unitPrice, req.Quantity, rate)

	var validity *time.Time
	if req.DurationCondition == types.DurationFixedDate {
		date, _ := time.Parse(validityDateLayout, req.Validity)
		validity = &date
	}

	order := &types.Order{
		OrderID:           uuid.New().String(),
		OwnerID:           ownerID,
		ClientID:          req.ClientID,
		SecurityID:        req.StockID,
		SecurityType:      security.Type,
		MarketType:        req.MarketType,
		OperationType:     req.OperationType,
		Quantity:          req.Quantity,
		Price:             unitPrice,
		DurationCondition: req.DurationCondition,
		PriceCondition:    req.PriceCondition,
		QuantityCondition: req.QuantityCondition,
		MinQuantity:       req.MinQuantity,
		Validity:          validity,
		GrossAmount:       snapshot.GrossAmount,
		CommissionAmount:  snapshot.CommissionAmount,
		NetTotal:          snapshot.NetTotal,
		Status:            types.OrderStatusPendingDocument,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	if req.Subscriber != nil {
		order.Subscriber = *req.Subscriber
	}

	if err := s.db.CreateOrderWithIdempotency(order, idempotencyKey); err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("client_id", order.ClientID).
		Str("stock_id", order.SecurityID).
		Str("operation", string(order.OperationType)).
		Int64("quantity", order.Quantity).
		Float64("net_total", order.NetTotal).
		Msg("order created, awaiting signed bulletin")

	return order, nil, nil
}

// GetOrder retrieves an order by its ID
func (s *Service) GetOrder(orderID string) (*types.Order, error) {
	return s.db.GetOrder(orderID)
}

// GetOrderForOwner retrieves an order visible to the given principal, either
// as its submitter or as the client it was placed for
func (s *Service) GetOrderForOwner(orderID, ownerID string) (*types.Order, error) {
	return s.db.GetOrderForOwner(orderID, ownerID)
}

// ConfirmOrder marks an order confirmed once its signed bulletin is stored
func (s *Service) ConfirmOrder(orderID string) (*types.Order, error) {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != types.OrderStatusPendingDocument {
		return nil, ErrOrderNotPending
	}

	order.Status = types.OrderStatusConfirmed
	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// StartWorkflow opens a new order-composition session for the given market
func (s *Service) StartWorkflow(ownerID string, market types.Market) (*Workflow, error) {
	if market != types.MarketPrimary && market != types.MarketSecondary {
		return nil, fmt.Errorf("unknown market type %q", market)
	}

	workflow := &Workflow{
		WorkflowID: uuid.New().String(),
		OwnerID:    ownerID,
		MarketType: market,
		State:      StateSelectingSecurity,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.CreateWorkflow(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// GetWorkflow fetches a workflow owned by the given client. Reads never issue
// writes: re-opening a session is free of side effects.
func (s *Service) GetWorkflow(workflowID, ownerID string) (*Workflow, error) {
	workflow, err := s.db.GetWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if workflow == nil || workflow.OwnerID != ownerID {
		return nil, ErrWorkflowNotFound
	}
	return workflow, nil
}

// AdvanceSecurity applies the security-selection step
func (s *Service) AdvanceSecurity(workflowID, ownerID, securityID string) (*Workflow, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, err
	}

	security, err := s.db.GetSecurity(securityID)
	if err != nil {
		return nil, err
	}
	if security == nil {
		return nil, ErrSecurityNotFound
	}
	if security.MarketType != workflow.MarketType {
		return nil, fmt.Errorf("security %s is not listed on market %s", securityID, workflow.MarketType)
	}

	if err := workflow.SelectSecurity(securityID); err != nil {
		return nil, err
	}
	return workflow, s.db.UpdateWorkflow(workflow)
}

// AdvanceClient applies the client-selection step of the subscription flow
func (s *Service) AdvanceClient(workflowID, ownerID, clientID string) (*Workflow, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, err
	}

	client, err := s.db.GetClient(clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	if err := workflow.SelectClient(clientID); err != nil {
		return nil, err
	}
	return workflow, s.db.UpdateWorkflow(workflow)
}

// AdvanceSubscriber applies the subscriber-identity step. When beneficialOwner
// is set the identity is auto-filled from the selected client record.
func (s *Service) AdvanceSubscriber(workflowID, ownerID string, sub types.Subscriber, beneficialOwner bool) (*Workflow, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, err
	}

	if beneficialOwner {
		client, err := s.db.GetClient(workflow.ClientID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrClientNotFound
		}
		sub = clients.SubscriberFor(client)
	}

	if err := workflow.CaptureSubscriber(sub); err != nil {
		return nil, err
	}
	return workflow, s.db.UpdateWorkflow(workflow)
}

// StepBack returns the workflow to its previous step
func (s *Service) StepBack(workflowID, ownerID string) (*Workflow, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := workflow.Back(); err != nil {
		return nil, err
	}
	return workflow, s.db.UpdateWorkflow(workflow)
}

// SubmitWorkflow validates the composed order detail and creates the order.
// On validation failure the workflow stays in order composition and the field
// map is returned; on success it waits for the signed bulletin.
func (s *Service) SubmitWorkflow(workflowID, ownerID string, req *types.OrderRequest) (*Workflow, map[string]string, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, nil, err
	}

	if err := workflow.BeginSubmit(); err != nil {
		return nil, nil, err
	}

	// Selections made in earlier steps override anything in the body
	req.StockID = workflow.SecurityID
	req.MarketType = workflow.MarketType
	if workflow.ClientID != "" {
		req.ClientID = workflow.ClientID
	} else if req.ClientID == "" {
		req.ClientID = ownerID
	}
	if workflow.SubscriberCaptured {
		sub := workflow.Subscriber
		req.Subscriber = &sub
	}

	// The workflow id doubles as the idempotency key: one order per session
	order, fields, err := s.CreateOrder(req, "workflow-"+workflow.WorkflowID, ownerID)
	if err != nil {
		if failErr := workflow.FailSubmit(); failErr != nil {
			return nil, nil, failErr
		}
		if saveErr := s.db.UpdateWorkflow(workflow); saveErr != nil {
			return nil, nil, saveErr
		}
		if errors.Is(err, ErrValidationFailed) {
			return workflow, fields, err
		}
		log.Error().Err(err).Str("workflow_id", workflowID).Msg("order creation failed")
		return workflow, nil, err
	}

	if err := workflow.CompleteSubmit(order.OrderID); err != nil {
		return nil, nil, err
	}
	return workflow, nil, s.db.UpdateWorkflow(workflow)
}

// ConfirmBulletin completes the workflow after its signed bulletin is stored
func (s *Service) ConfirmBulletin(workflowID, ownerID string) (*Workflow, error) {
	workflow, err := s.GetWorkflow(workflowID, ownerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ConfirmOrder(workflow.CreatedOrderID); err != nil {
		return nil, err
	}
	if err := workflow.AttachBulletin(); err != nil {
		return nil, err
	}
	return workflow, s.db.UpdateWorkflow(workflow)
}
