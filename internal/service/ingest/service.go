package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"loom/internal/config"
	"loom/internal/domain"
	"loom/internal/domain/models"
	"loom/internal/domain/repositories"
	"loom/internal/service/retrieval"
)

// embedBatchSize bounds how many chunks go to the embeddings API per call.
const embedBatchSize = 64

// processTimeout bounds background processing of a single document.
const processTimeout = 5 * time.Minute

// Service owns the document ingest pipeline: uploads land on disk with a
// pending record, then a background pass extracts, splits, embeds, and
// indexes the content, moving the record to ready or failed.
type Service struct {
	docs      repositories.DocumentRepository
	chunks    repositories.ChunkRepository
	embedder  retrieval.Embedder
	extractor Extractor
	splitter  Splitter
	txManager repositories.TransactionManager
	uploadDir string
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewService creates a document ingest service.
func NewService(
	docs repositories.DocumentRepository,
	chunks repositories.ChunkRepository,
	embedder retrieval.Embedder,
	extractor Extractor,
	txManager repositories.TransactionManager,
	uploadDir string,
	logger *slog.Logger,
) *Service {
	return &Service{
		docs:      docs,
		chunks:    chunks,
		embedder:  embedder,
		extractor: extractor,
		splitter:  DefaultSplitter(),
		txManager: txManager,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Upload stores the file, records a pending document, and kicks off
// background processing. The returned document is still pending; callers
// poll Get until it turns ready or failed.
func (s *Service) Upload(ctx context.Context, userID, filename string, size int64, r io.Reader) (*models.Document, error) {
	if err := validation.Validate(filename,
		validation.Required,
		validation.Length(1, 255),
	); err != nil {
		return nil, fmt.Errorf("%w: filename: %v", domain.ErrValidation, err)
	}
	if !s.extractor.Supports(filename) {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrValidation, filepath.Ext(filename))
	}
	if size > config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}

	storagePath, written, err := s.store(userID, filename, r)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		UserID:      userID,
		Filename:    filename,
		StoragePath: storagePath,
		SizeBytes:   written,
		Status:      models.DocumentStatusPending,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		os.Remove(storagePath)
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.logger.Info("document uploaded",
		"document_id", doc.ID,
		"user_id", userID,
		"filename", filename,
		"size_bytes", written,
	)

	s.startProcessing(doc.ID, doc.UserID)
	return doc, nil
}

// store copies the upload to disk under a per-user directory, enforcing the
// size cap while copying since Content-Length can lie.
func (s *Service) store(userID, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(s.uploadDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	storagePath := filepath.Join(dir, uuid.NewString()+filepath.Ext(filename))
	f, err := os.Create(storagePath)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, config.MaxUploadBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(storagePath)
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if written > config.MaxUploadBytes {
		os.Remove(storagePath)
		return "", 0, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}

	return storagePath, written, nil
}

// startProcessing runs the pipeline in the background. The HTTP request
// context must not govern it, so it gets a fresh one.
func (s *Service) startProcessing(documentID, userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()

		if err := s.process(ctx, documentID, userID); err != nil {
			s.logger.Error("document processing failed",
				"document_id", documentID,
				"error", err,
			)
			msg := err.Error()
			if setErr := s.docs.SetStatus(ctx, documentID, models.DocumentStatusFailed, &msg); setErr != nil {
				s.logger.Error("failed to mark document failed",
					"document_id", documentID,
					"error", setErr,
				)
			}
		}
	}()
}

func (s *Service) process(ctx context.Context, documentID, userID string) error {
	doc, err := s.docs.GetDocument(ctx, documentID, userID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	data, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		return fmt.Errorf("read stored file: %w", err)
	}

	text, err := s.extractor.Extract(doc.Filename, data)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return fmt.Errorf("document has no indexable text")
	}

	// Embed everything before touching the index so a mid-batch API failure
	// leaves the old chunks intact.
	stored := make([]repositories.StoredChunk, 0, len(pieces))
	for offset := 0; offset < len(pieces); offset += embedBatchSize {
		end := min(offset+embedBatchSize, len(pieces))
		batch := pieces[offset:end]

		vectors, err := s.embedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		for i := range batch {
			stored = append(stored, repositories.StoredChunk{
				DocumentID: documentID,
				Index:      offset + i,
				Text:       batch[i],
				Embedding:  vectors[i],
			})
		}
	}

	// Swap in the new chunks and flip the status in one transaction, so
	// readers never see a ready document with a half-written index.
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.chunks.DeleteChunks(ctx, documentID); err != nil {
			return fmt.Errorf("clear old chunks: %w", err)
		}
		if err := s.chunks.InsertChunks(ctx, stored); err != nil {
			return fmt.Errorf("index chunks: %w", err)
		}
		if err := s.docs.SetStatus(ctx, documentID, models.DocumentStatusReady, nil); err != nil {
			return fmt.Errorf("mark document ready: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("document indexed",
		"document_id", documentID,
		"chunks", len(pieces),
	)
	return nil
}

// Reprocess re-runs the pipeline for an existing document.
func (s *Service) Reprocess(ctx context.Context, documentID, userID string) (*models.Document, error) {
	doc, err := s.docs.GetDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.docs.SetStatus(ctx, documentID, models.DocumentStatusPending, nil); err != nil {
		return nil, fmt.Errorf("mark document pending: %w", err)
	}
	doc.Status = models.DocumentStatusPending
	doc.Error = nil

	s.startProcessing(documentID, userID)
	return doc, nil
}

// Get returns one of the user's documents.
func (s *Service) Get(ctx context.Context, documentID, userID string) (*models.Document, error) {
	return s.docs.GetDocument(ctx, documentID, userID)
}

// List returns the user's documents, newest upload first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Document, error) {
	return s.docs.ListDocuments(ctx, userID)
}

// Delete removes the document record (chunks cascade) and its stored file.
func (s *Service) Delete(ctx context.Context, documentID, userID string) error {
	doc, err := s.docs.GetDocument(ctx, documentID, userID)
	if err != nil {
		return err
	}

	if err := s.docs.DeleteDocument(ctx, documentID, userID); err != nil {
		return err
	}

	if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove stored file",
			"document_id", documentID,
			"path", doc.StoragePath,
			"error", err,
		)
	}
	return nil
}

// Wait blocks until all in-flight background processing finishes.
// Called during shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}
