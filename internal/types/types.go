package types

import (
	"time"

	"gorm.io/gorm"
)

// SecurityType identifies the instrument family a security belongs to.
type SecurityType string

const (
	SecurityTypeAction       SecurityType = "action"
	SecurityTypeObligation   SecurityType = "obligation"
	SecurityTypeSukuk        SecurityType = "sukuk"
	SecurityTypeParticipatif SecurityType = "participatif"
)

// Market distinguishes the primary (subscription) and secondary (trading) markets.
type Market string

const (
	MarketPrimary   Market = "P"
	MarketSecondary Market = "S"
)

// OperationType is the order direction: "A" (achat/buy) or "V" (vente/sell).
type OperationType string

const (
	OperationBuy  OperationType = "A"
	OperationSell OperationType = "V"
)

// DurationCondition controls how long an order stays valid.
type DurationCondition string

const (
	DurationDayOnly      DurationCondition = "day-only"
	DurationFixedDate    DurationCondition = "fixed-date"
	DurationUnstipulated DurationCondition = "unstipulated"
)

// PriceCondition controls how the order is priced.
type PriceCondition string

const (
	PriceMarket PriceCondition = "market"
	PriceLimit  PriceCondition = "limit"
)

// QuantityCondition controls how the order may be partially filled.
type QuantityCondition string

const (
	QuantityAllOrNone QuantityCondition = "all-or-none"
	QuantityMinimum   QuantityCondition = "minimum-quantity"
)

// Order statuses
const (
	OrderStatusPendingDocument = "PENDING_DOCUMENT"
	OrderStatusConfirmed       = "CONFIRMED"
	OrderStatusExpired         = "EXPIRED"
)

// Security is a listed instrument: stock, bond, sukuk or participation certificate.
// Reference data is managed by back-office agents and read-only for clients.
type Security struct {
	gorm.Model     `json:"-"`
	SecurityID     string       `gorm:"uniqueIndex" json:"id"`
	Issuer         string       `json:"issuer"`
	Code           string       `json:"code"`
	ISINCode       string       `json:"isin_code"`
	FaceValue      float64      `json:"face_value"`
	Quantity       int64        `json:"quantity"` // quantity still available for ordering
	Type           SecurityType `json:"security_type"`
	MarketType     Market       `json:"market_type"`
	Government     bool         `json:"government"` // government issues trade commission-free
	EmissionDate   time.Time    `json:"emission_date"`
	CouponSchedule []CouponRate `gorm:"foreignKey:SecurityID;references:SecurityID" json:"coupon_schedule,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CouponRate is one row of a bond/sukuk coupon schedule.
type CouponRate struct {
	gorm.Model `json:"-"`
	SecurityID string  `gorm:"index" json:"-"`
	Year       int     `json:"year"`
	Rate       float64 `json:"rate"`
}

// Client is a brokerage account holder. Lookup-only on this surface; onboarding
// happens in the back office.
type Client struct {
	gorm.Model  `json:"-"`
	ClientID    string `gorm:"uniqueIndex" json:"id"`
	Name        string `json:"name"`
	ClientCode  string `json:"client_code"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Wilaya      string `json:"wilaya"`
	BirthDate   string `json:"birth_date"`
	IDNumber    string `json:"id_number"`
	Nationality string `json:"nationalite"`
}

// Subscriber carries the beneficial-owner identity captured during a
// primary-market subscription. Empty on secondary-market orders.
type Subscriber struct {
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	Wilaya      string `json:"wilaya,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	IDNumber    string `json:"id_number,omitempty"`
	Nationality string `json:"nationalite,omitempty"`
}

// OrderRequest is the order-creation wire format.
type OrderRequest struct {
	StockID           string            `json:"stock_id"`
	ClientID          string            `json:"client_id"`
	Quantity          int64             `json:"quantity"`
	Price             float64           `json:"price"`
	MarketType        Market            `json:"market_type"`
	OperationType     OperationType     `json:"operation_type"`
	DurationCondition DurationCondition `json:"conditionDuree"`
	PriceCondition    PriceCondition    `json:"conditionPrix"`
	QuantityCondition QuantityCondition `json:"conditionQuantite"`
	MinQuantity       int64             `json:"minQuantity,omitempty"`
	Validity          string            `json:"validity,omitempty"` // YYYY-MM-DD, fixed-date orders only
	Subscriber        *Subscriber       `json:"souscripteur,omitempty"`
}

// Order is a submitted order. It stays PENDING_DOCUMENT until the signed
// bulletin is uploaded, then becomes CONFIRMED. Orders whose bulletin never
// arrives are expired by the background processor.
type Order struct {
	gorm.Model        `json:"-"`
	OrderID           string            `gorm:"uniqueIndex" json:"order_id"`
	OwnerID           string            `gorm:"index" json:"-"` // authenticated principal who submitted the order
	ClientID          string            `gorm:"index" json:"client_id"`
	SecurityID        string            `gorm:"index" json:"stock_id"`
	SecurityType      SecurityType      `json:"security_type"`
	MarketType        Market            `json:"market_type"`
	OperationType     OperationType     `json:"operation_type"`
	Quantity          int64             `json:"quantity"`
	Price             float64           `json:"price"`
	DurationCondition DurationCondition `json:"conditionDuree"`
	PriceCondition    PriceCondition    `json:"conditionPrix"`
	QuantityCondition QuantityCondition `json:"conditionQuantite"`
	MinQuantity       int64             `json:"minQuantity,omitempty"`
	Validity          *time.Time        `json:"validity,omitempty"`
	Subscriber        Subscriber        `gorm:"embedded;embeddedPrefix:subscriber_" json:"souscripteur"`
	GrossAmount       float64           `json:"gross_amount"`
	CommissionAmount  float64           `json:"commission_amount"`
	NetTotal          float64           `json:"net_total"`
	Status            string            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
