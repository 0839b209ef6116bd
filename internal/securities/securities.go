package securities

import (
	"errors"
	"time"

	"github.com/boursa/brokerage-api/internal/types"
	"github.com/boursa/brokerage-api/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrUnknownSecurityType = errors.New("unknown security type")
	ErrUnknownMarket       = errors.New("unknown market type")
	ErrSecurityNotFound    = errors.New("security not found")
)

// Service handles security reference data: client-facing listing and
// back-office management.
type Service struct {
	db *Database
}

// NewService creates a new securities service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

func validSecurityType(t types.SecurityType) bool {
	switch t {
	case types.SecurityTypeAction, types.SecurityTypeObligation,
		types.SecurityTypeSukuk, types.SecurityTypeParticipatif:
		return true
	}
	return false
}

func validMarket(m types.Market) bool {
	return m == types.MarketPrimary || m == types.MarketSecondary
}

// ListSecurities returns securities filtered by optional type and market
func (s *Service) ListSecurities(securityType types.SecurityType, market types.Market) ([]types.Security, error) {
	if securityType != "" && !validSecurityType(securityType) {
		return nil, ErrUnknownSecurityType
	}
	if market != "" && !validMarket(market) {
		return nil, ErrUnknownMarket
	}
	return s.db.ListSecurities(securityType, market)
}

// GetSecurity returns a single security with its coupon schedule
func (s *Service) GetSecurity(securityID string) (*types.Security, error) {
	return s.db.GetSecurity(securityID)
}

// CreateSecurity registers a new listed security (back office)
func (s *Service) CreateSecurity(security *types.Security) error {
	if !validSecurityType(security.Type) {
		return ErrUnknownSecurityType
	}
	if !validMarket(security.MarketType) {
		return ErrUnknownMarket
	}

	security.SecurityID = uuid.New().String()
	for i := range security.CouponSchedule {
		security.CouponSchedule[i].SecurityID = security.SecurityID
	}
	if security.EmissionDate.IsZero() {
		security.EmissionDate = time.Now()
	}

	log.Info().
		Str("security_id", security.SecurityID).
		Str("issuer", security.Issuer).
		Str("type", string(security.Type)).
		Str("market", string(security.MarketType)).
		Msg("registering security")

	return s.db.CreateSecurity(security)
}

// UpdateSecurity updates a security's attributes and coupon schedule (back office)
func (s *Service) UpdateSecurity(securityID string, updated *types.Security) (*types.Security, error) {
	existing, err := s.db.GetSecurity(securityID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSecurityNotFound
	}

	if updated.Type != "" && !validSecurityType(updated.Type) {
		return nil, ErrUnknownSecurityType
	}

	existing.Issuer = updated.Issuer
	existing.Code = updated.Code
	existing.ISINCode = updated.ISINCode
	existing.FaceValue = updated.FaceValue
	existing.Quantity = updated.Quantity
	existing.Government = updated.Government
	if updated.Type != "" {
		existing.Type = updated.Type
	}
	if !updated.EmissionDate.IsZero() {
		existing.EmissionDate = updated.EmissionDate
	}

	if updated.CouponSchedule != nil {
		if err := s.db.ReplaceCouponSchedule(securityID, updated.CouponSchedule); err != nil {
			return nil, err
		}
		existing.CouponSchedule = updated.CouponSchedule
	}

	// Save without re-writing the association rows handled above
	sec := *existing
	sec.CouponSchedule = nil
	if err := s.db.UpdateSecurity(&sec); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteSecurity removes a security (back office)
func (s *Service) DeleteSecurity(securityID string) error {
	return s.db.DeleteSecurity(securityID)
}

// GinHandlers contains HTTP handlers for security endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for security endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListSecuritiesHandler handles GET requests listing securities
// Query parameters: type (action|obligation|sukuk|participatif), market (P|S)
func (h *GinHandlers) ListSecuritiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		securityType := types.SecurityType(c.Query("type"))
		market := types.Market(c.Query("market"))

		securities, err := h.service.ListSecurities(securityType, market)
		if err == ErrUnknownSecurityType || err == ErrUnknownMarket {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, securities, err)
	}
}

// GetSecurityHandler handles GET requests for a single security
// URL parameter: security_id
func (h *GinHandlers) GetSecurityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		security, err := h.service.GetSecurity(c.Param("security_id"))
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		if security == nil {
			response.NotFound(c, "Security not found")
			return
		}
		response.Success(c, security)
	}
}

// CreateSecurityHandler handles POST requests registering a security (agents only)
func (h *GinHandlers) CreateSecurityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var security types.Security
		if err := c.ShouldBindJSON(&security); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.CreateSecurity(&security)
		if err == ErrUnknownSecurityType || err == ErrUnknownMarket {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, security, err)
	}
}

// UpdateSecurityHandler handles PUT requests updating a security (agents only)
func (h *GinHandlers) UpdateSecurityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload types.Security
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		updated, err := h.service.UpdateSecurity(c.Param("security_id"), &payload)
		switch {
		case err == ErrSecurityNotFound:
			response.NotFound(c, err.Error())
		case err == ErrUnknownSecurityType:
			response.BadRequest(c, err.Error())
		default:
			response.Handle(c, updated, err)
		}
	}
}

// DeleteSecurityHandler handles DELETE requests removing a security (agents only)
func (h *GinHandlers) DeleteSecurityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.DeleteSecurity(c.Param("security_id"))
		response.Handle(c, gin.H{"deleted": c.Param("security_id")}, err)
	}
}
