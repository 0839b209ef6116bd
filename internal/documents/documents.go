package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrInvalidFileType = errors.New("invalid file type: only PDF, PNG and JPEG are accepted")
	ErrEmptyFile       = errors.New("file is empty")
)

// Content types accepted for signed bulletins and onboarding documents,
// mapped to the extension used on disk. Detection is by content signature,
// not by the client-supplied file name.
var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

// Document records a stored upload, keyed by the resource it belongs to
// (typically an order id).
type Document struct {
	gorm.Model  `json:"-"`
	DocumentID  string    `gorm:"uniqueIndex" json:"document_id"`
	Key         string    `gorm:"index" json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Path        string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResult is the per-file outcome of a batch upload. Failures are
// reported individually instead of failing the whole batch.
type UploadResult struct {
	FileName   string `json:"file_name"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Service stores uploaded documents on disk and records them in the database
type Service struct {
	db      *Database
	dir     string
	maxSize int64
}

// NewService creates a new document service storing files under dir
func NewService(gormDB *gorm.DB, dir string, maxSize int64) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		dir:     dir,
		maxSize: maxSize,
	}
}

// sniffContentType reads the file signature and returns the detected content
// type if it is one of the accepted document types.
func (s *Service) sniffContentType(file multipart.File) (string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for type detection: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyFile
	}

	// Reset so the copy below starts from the beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])
	if _, ok := allowedContentTypes[contentType]; !ok {
		return contentType, ErrInvalidFileType
	}
	return contentType, nil
}

// Validate checks an upload against the size and type constraints without
// storing anything. Rejections happen before any disk write.
func (s *Service) Validate(header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxSize {
		return "", ErrFileTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return s.sniffContentType(file)
}

// Store validates an upload and writes it under the configured directory,
// recording a Document row keyed by the given resource id.
func (s *Service) Store(key string, header *multipart.FileHeader) (*Document, error) {
	contentType, err := s.Validate(header)
	if err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}

	documentID := uuid.New().String()
	path := filepath.Join(s.dir, documentID+allowedContentTypes[contentType])

	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	document := &Document{
		DocumentID:  documentID,
		Key:         key,
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        written,
		Path:        path,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateDocument(document); err != nil {
		os.Remove(path)
		return nil, err
	}

	log.Info().
		Str("document_id", document.DocumentID).
		Str("key", key).
		Str("content_type", contentType).
		Int64("size", written).
		Msg("document stored")

	return document, nil
}

// StoreBatch stores several documents under one key and reports a result per
// file. A rejected or failed file does not stop the others.
func (s *Service) StoreBatch(key string, headers []*multipart.FileHeader) []UploadResult {
	results := make([]UploadResult, 0, len(headers))
	for _, header := range headers {
		result := UploadResult{FileName: header.Filename}
		document, err := s.Store(key, header)
		if err != nil {
			result.Error = err.Error()
			log.Warn().
				Err(err).
				Str("key", key).
				Str("file_name", header.Filename).
				Msg("batch upload item rejected")
		} else {
			result.DocumentID = document.DocumentID
		}
		results = append(results, result)
	}
	return results
}

// ListByKey returns the documents stored for a resource
func (s *Service) ListByKey(key string) ([]Document, error) {
	return s.db.ListDocumentsByKey(key)
}
