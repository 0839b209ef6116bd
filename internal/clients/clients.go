package clients

import (
	"github.com/boursa/brokerage-api/internal/types"
	"github.com/boursa/brokerage-api/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service handles client lookup. Clients are onboarded elsewhere; this surface
// only lists and resolves them for order placement.
type Service struct {
	db *Database
}

// NewService creates a new clients service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// ListClients returns all known clients
func (s *Service) ListClients() ([]types.Client, error) {
	return s.db.ListClients()
}

// GetClient returns a single client by ID
func (s *Service) GetClient(clientID string) (*types.Client, error) {
	return s.db.GetClient(clientID)
}

// CreateClient registers a client record (back office)
func (s *Service) CreateClient(client *types.Client) error {
	client.ClientID = uuid.New().String()
	return s.db.CreateClient(client)
}

// SubscriberFor builds subscriber-identity fields from a client record, used
// when the client declares themselves the beneficial owner.
func SubscriberFor(client *types.Client) types.Subscriber {
	return types.Subscriber{
		Name:        client.Name,
		Address:     client.Address,
		Wilaya:      client.Wilaya,
		BirthDate:   client.BirthDate,
		IDNumber:    client.IDNumber,
		Nationality: client.Nationality,
	}
}

// GinHandlers contains HTTP handlers for client endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for client endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListClientsHandler handles GET requests listing clients
func (h *GinHandlers) ListClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := h.service.ListClients()
		response.Handle(c, clients, err)
	}
}

// GetClientHandler handles GET requests for a single client
// URL parameter: client_id
func (h *GinHandlers) GetClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := h.service.GetClient(c.Param("client_id"))
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		if client == nil {
			response.NotFound(c, "Client not found")
			return
		}
		response.Success(c, client)
	}
}

// CreateClientHandler handles POST requests registering a client (agents only)
func (h *GinHandlers) CreateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var client types.Client
		if err := c.ShouldBindJSON(&client); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.CreateClient(&client)
		response.Handle(c, client, err)
	}
}
