package orders

import (
	"time"

	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/gorm"
)

// WorkflowState is one of the named steps of the order-composition flow.
type WorkflowState string

const (
	StateSelectingSecurity   WorkflowState = "SELECTING_SECURITY"
	StateSelectingClient     WorkflowState = "SELECTING_CLIENT"
	StateCapturingSubscriber WorkflowState = "CAPTURING_SUBSCRIBER_IDENTITY"
	StateComposingOrder      WorkflowState = "COMPOSING_ORDER_DETAIL"
	StateSubmitting          WorkflowState = "SUBMITTING"
	StateAwaitingDocument    WorkflowState = "AWAITING_DOCUMENT_UPLOAD"
	StateConfirmed           WorkflowState = "CONFIRMED"
)

// Workflow is a persisted order-composition session. Secondary-market flows
// jump from security selection straight to order detail; primary-market
// subscription flows walk the client and subscriber steps first.
type Workflow struct {
	gorm.Model         `json:"-"`
	WorkflowID         string           `gorm:"uniqueIndex" json:"workflow_id"`
	OwnerID            string           `gorm:"index" json:"owner_id"` // authenticated client driving the flow
	MarketType         types.Market     `json:"market_type"`
	State              WorkflowState    `json:"state"`
	SecurityID         string           `json:"stock_id,omitempty"`
	ClientID           string           `json:"client_id,omitempty"`
	Subscriber         types.Subscriber `gorm:"embedded;embeddedPrefix:subscriber_" json:"souscripteur"`
	SubscriberCaptured bool             `json:"subscriber_captured"`
	CreatedOrderID     string           `json:"created_ordre_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
}
