package stats

import (
	"github.com/boursa/brokerage-api/internal/types"
	"github.com/boursa/brokerage-api/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TypeBreakdown aggregates orders for one (security type, status) pair
type TypeBreakdown struct {
	SecurityType    types.SecurityType `json:"security_type"`
	Status          string             `json:"status"`
	Orders          int64              `json:"orders"`
	GrossVolume     float64            `json:"gross_volume"`
	CommissionTotal float64            `json:"commission_total"`
}

// Summary is the dashboard payload served to back-office agents
type Summary struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	ConfirmedOrders int64           `json:"confirmed_orders"`
	ExpiredOrders   int64           `json:"expired_orders"`
	GrossVolume     float64         `json:"gross_volume"`
	CommissionTotal float64         `json:"commission_total"`
	Securities      int64           `json:"securities"`
	Clients         int64           `json:"clients"`
	Breakdown       []TypeBreakdown `json:"breakdown"`
}

// Service computes order statistics for the back-office dashboard
type Service struct {
	db *gorm.DB
}

// NewService creates a new statistics service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: gormDB}
}

// GetSummary aggregates order counts, gross volume and commission totals,
// overall and per security type and status.
func (s *Service) GetSummary() (*Summary, error) {
	var breakdown []TypeBreakdown
	err := s.db.Model(&types.Order{}).
		Select("security_type, status, count(*) as orders, " +
			"coalesce(sum(gross_amount), 0) as gross_volume, " +
			"coalesce(sum(commission_amount), 0) as commission_total").
		Group("security_type, status").
		Order("security_type, status").
		Scan(&breakdown).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{Breakdown: breakdown}
	for _, row := range breakdown {
		summary.TotalOrders += row.Orders
		summary.GrossVolume += row.GrossVolume
		summary.CommissionTotal += row.CommissionTotal
		switch row.Status {
		case types.OrderStatusPendingDocument:
			summary.PendingOrders += row.Orders
		case types.OrderStatusConfirmed:
			summary.ConfirmedOrders += row.Orders
		case types.OrderStatusExpired:
			summary.ExpiredOrders += row.Orders
		}
	}

	if err := s.db.Model(&types.Security{}).Count(&summary.Securities).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&types.Client{}).Count(&summary.Clients).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

// GinHandlers contains HTTP handlers for statistics endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for statistics endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SummaryHandler handles GET requests for the back-office dashboard summary
func (h *GinHandlers) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := h.service.GetSummary()
		response.Handle(c, summary, err)
	}
}
