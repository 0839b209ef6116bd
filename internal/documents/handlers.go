package documents

import (
	"errors"

	"github.com/boursa/brokerage-api/pkg/response"
	"github.com/gin-gonic/gin"
)

// GinHandlers contains HTTP handlers for document upload endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for document endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrEmptyFile)
}

// UploadHandler handles POST requests storing a single document under a key
// Multipart form field: file
// URL parameter: key
func (h *GinHandlers) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, "A file field is required")
			return
		}

		document, err := h.service.Store(c.Param("key"), header)
		if err != nil {
			if isRejection(err) {
				response.BadRequest(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, document)
	}
}

// BatchUploadHandler handles POST requests storing several onboarding
// documents at once, reporting a result per file
// Multipart form field: files (repeated)
// URL parameter: key
func (h *GinHandlers) BatchUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			response.BadRequest(c, "Multipart form required")
			return
		}

		headers := form.File["files"]
		if len(headers) == 0 {
			response.BadRequest(c, "At least one file is required")
			return
		}

		results := h.service.StoreBatch(c.Param("key"), headers)
		response.Success(c, results)
	}
}

// ListHandler handles GET requests listing documents stored under a key
// URL parameter: key
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		documents, err := h.service.ListByKey(c.Param("key"))
		response.Handle(c, documents, err)
	}
}
