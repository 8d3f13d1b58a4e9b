package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/grocery-receipts/internal/export"
	"github.com/zombor/grocery-receipts/internal/parsing"
	"github.com/zombor/grocery-receipts/internal/scanning"
)

const (
	// HistoryKeep is how many submissions the history retains
	HistoryKeep = 50

	// DefaultHistoryLimit is how many submissions ListHistory returns when no limit is given
	DefaultHistoryLimit = 10

	dateLayout      = "2006-01-02"
	pipelineWorkers = 4
)

var (
	// ErrAlreadySubmitted is returned when changing or resubmitting a submitted upload
	ErrAlreadySubmitted = errors.New("upload already submitted")

	// ErrNoItems is returned when submitting an upload without items
	ErrNoItems = errors.New("upload has no items")

	// ErrInvalidMethod is returned for an unknown extraction method
	ErrInvalidMethod = errors.New("invalid extraction method")
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// IDGenerator generates unique IDs for uploads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles upload, review and submission of receipts
type Service struct {
	db            DB
	scanner       scanning.Scanner
	recognizer    scanning.TextRecognizer
	pipeline      *parsing.Pipeline
	exporter      export.Exporter
	storage       Storage
	idGenerator   IDGenerator
	timeSource    TimeSource
	minConfidence float64
}

// NewService creates a new Service with a UUID generator and the wall clock.
// scanner or recognizer may be nil, in which case that extraction method is unavailable.
func NewService(db DB, scanner scanning.Scanner, recognizer scanning.TextRecognizer, pipeline *parsing.Pipeline, exporter export.Exporter, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, recognizer, pipeline, exporter, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, recognizer scanning.TextRecognizer, pipeline *parsing.Pipeline, exporter export.Exporter, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	if pipeline == nil {
		pipeline = parsing.NewDefault()
	}
	return &Service{
		db:            db,
		scanner:       scanner,
		recognizer:    recognizer,
		pipeline:      pipeline,
		exporter:      exporter,
		storage:       storage,
		idGenerator:   idGen,
		timeSource:    timeSrc,
		minConfidence: scanning.DefaultMinConfidence,
	}
}

// SetMinConfidence changes the threshold below which recognized text is ignored
func (s *Service) SetMinConfidence(minConfidence float64) {
	s.minConfidence = minConfidence
}

// sanitizeFilename removes special characters from phone-generated names and truncates them
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = whitespaceRun.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessUpload stores a receipt image and extracts its items for review.
// An extraction that fails or finds nothing is saved with StatusFailed rather than
// returned as an error, so the user can see what happened and retry.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType, method string) (*Upload, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = MethodOCR
	}
	if method != MethodOCR && method != MethodVLM {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	upload := &Upload{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Method:      method,
		Status:      StatusReview,
		Items:       []parsing.LineItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items, err := s.extract(ctx, data, contentType, method, now)
	switch {
	case err != nil:
		slog.Error("Failed to extract receipt items",
			"filename", filename,
			"content_type", contentType,
			"method", method,
			"file_size", len(data),
			"error", err,
		)
		upload.Status = StatusFailed
		upload.Error = err.Error()
	case len(items) == 0:
		slog.Warn("No items found on receipt", "filename", filename, "method", method)
		upload.Status = StatusFailed
		upload.Error = "no items found on receipt"
	default:
		upload.Items = items
	}

	if err := s.db.SaveUpload(upload); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving upload to database: %w", err)
	}

	slog.Info("Processed upload", "id", id, "method", method, "status", upload.Status, "items", len(upload.Items))
	return upload, nil
}

// extract runs the requested extraction method
func (s *Service) extract(ctx context.Context, data []byte, contentType, method string, now time.Time) ([]parsing.LineItem, error) {
	if method == MethodVLM {
		if s.scanner == nil {
			return nil, fmt.Errorf("vlm extraction is not configured")
		}
		items, err := s.scanner.ScanReceipt(data, contentType)
		if err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		return items, nil
	}

	if s.recognizer == nil {
		return nil, fmt.Errorf("ocr extraction is not configured")
	}
	fragments, err := s.recognizer.RecognizeText(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}
	lines := scanning.Lines(fragments, s.minConfidence)
	items, err := s.pipeline.RunConcurrent(ctx, lines, now.Format(dateLayout), pipelineWorkers)
	if err != nil {
		return nil, fmt.Errorf("parsing lines: %w", err)
	}
	return items, nil
}

// GetUpload retrieves an upload by ID
func (s *Service) GetUpload(id string) (*Upload, error) {
	upload, err := s.db.GetUpload(id)
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}
	return upload, nil
}

// ListUploads returns all uploads
func (s *Service) ListUploads() ([]*Upload, error) {
	uploads, err := s.db.ListUploads()
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	return uploads, nil
}

// DeleteUpload removes an upload and its file
func (s *Service) DeleteUpload(id string) error {
	upload, err := s.db.GetUpload(id)
	if err != nil {
		return fmt.Errorf("getting upload for deletion: %w", err)
	}

	if err := s.storage.Delete(upload.Filename); err != nil {
		// Continue with database deletion
		slog.Warn("Failed to delete file", "filename", upload.Filename, "error", err)
	}

	if err := s.db.DeleteUpload(id); err != nil {
		return fmt.Errorf("deleting upload from database: %w", err)
	}
	return nil
}

// GetUploadFile retrieves the stored image for an upload
func (s *Service) GetUploadFile(id string) ([]byte, string, error) {
	upload, err := s.db.GetUpload(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting upload: %w", err)
	}

	data, err := s.storage.Get(upload.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting upload file: %w", err)
	}
	return data, upload.ContentType, nil
}

// UpdateItems replaces an upload's items with reviewed ones.
// Edited fields go through the same normalizer as extracted ones.
func (s *Service) UpdateItems(id string, items []parsing.LineItem) (*Upload, error) {
	upload, err := s.db.GetUpload(id)
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}
	if upload.Status == StatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	defaultDate := upload.CreatedAt.Format(dateLayout)
	normalizer := s.pipeline.Normalizer()
	reviewed := make([]parsing.LineItem, 0, len(items))
	for _, item := range items {
		normalized := normalizer.Normalize(parsing.RawItem{
			Date:     item.Date,
			Name:     item.Ingredient,
			Quantity: item.Quantity,
			Price:    item.Price,
			Notes:    item.Notes,
		})
		if normalized.Date == "" {
			normalized.Date = defaultDate
		}
		reviewed = append(reviewed, normalized)
	}

	upload.Items = reviewed
	upload.UpdatedAt = s.timeSource.Now()
	if len(reviewed) > 0 {
		upload.Status = StatusReview
		upload.Error = ""
	}

	if err := s.db.SaveUpload(upload); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	return upload, nil
}

// SubmitUpload exports an upload's items, marks it submitted and records it in the
// history. It returns the number of rows written.
func (s *Service) SubmitUpload(ctx context.Context, id string) (int, error) {
	upload, err := s.db.GetUpload(id)
	if err != nil {
		return 0, fmt.Errorf("getting upload: %w", err)
	}
	if upload.Status == StatusSubmitted {
		return 0, ErrAlreadySubmitted
	}
	if len(upload.Items) == 0 {
		return 0, ErrNoItems
	}

	rows, err := s.exporter.Append(ctx, upload.Items)
	if err != nil {
		return 0, fmt.Errorf("exporting items: %w", err)
	}

	now := s.timeSource.Now()
	upload.Status = StatusSubmitted
	upload.UpdatedAt = now
	if err := s.db.SaveUpload(upload); err != nil {
		return rows, fmt.Errorf("saving upload: %w", err)
	}

	entry := HistoryEntry{
		Filename:   upload.Filename,
		Method:     upload.Method,
		Timestamp:  now,
		ItemsCount: len(upload.Items),
	}
	if err := s.db.AppendHistory(entry, HistoryKeep); err != nil {
		// Rows are already exported at this point
		slog.Warn("Failed to record history", "id", id, "error", err)
	}

	slog.Info("Submitted upload", "id", id, "rows", rows)
	return rows, nil
}

// ListHistory returns the newest submissions, oldest first.
// limit <= 0 uses DefaultHistoryLimit.
func (s *Service) ListHistory(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.db.ListHistory(limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return entries, nil
}
