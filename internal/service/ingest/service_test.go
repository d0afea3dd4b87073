package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"loom/internal/domain"
	"loom/internal/domain/models"
	"loom/internal/domain/repositories"
)

// fakeDocumentRepo is an in-memory DocumentRepository.
type fakeDocumentRepo struct {
	mu     sync.Mutex
	docs   map[string]*models.Document
	nextID int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]*models.Document)}
}

func (f *fakeDocumentRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	stored := *doc
	f.docs[doc.ID] = &stored
	return nil
}

func (f *fakeDocumentRepo) GetDocument(ctx context.Context, documentID, userID string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.UserID != userID {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentRepo) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, doc := range f.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) SetStatus(ctx context.Context, documentID, status string, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	doc.Status = status
	doc.Error = errMsg
	return nil
}

func (f *fakeDocumentRepo) DeleteDocument(ctx context.Context, documentID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok || doc.UserID != userID {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	delete(f.docs, documentID)
	return nil
}

func (f *fakeDocumentRepo) status(t *testing.T, documentID string) (string, *string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		t.Fatalf("document %s not stored", documentID)
	}
	return doc.Status, doc.Error
}

// fakeChunkStore records inserted chunks.
type fakeChunkStore struct {
	mu     sync.Mutex
	chunks map[string][]repositories.StoredChunk
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[string][]repositories.StoredChunk)}
}

func (f *fakeChunkStore) InsertChunks(ctx context.Context, chunks []repositories.StoredChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.DocumentID] = append(f.chunks[c.DocumentID], c)
	}
	return nil
}

func (f *fakeChunkStore) DeleteChunks(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chunks, documentID)
	return nil
}

func (f *fakeChunkStore) SearchChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]repositories.SearchHit, error) {
	return nil, nil
}

func (f *fakeChunkStore) count(documentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks[documentID])
}

// stubEmbedder returns fixed-size vectors, or fails when told to.
type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

// nopTxManager runs the function without a real transaction.
type nopTxManager struct{}

func (nopTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func testService(t *testing.T, embedder *stubEmbedder) (*Service, *fakeDocumentRepo, *fakeChunkStore) {
	t.Helper()
	docs := newFakeDocumentRepo()
	chunks := newFakeChunkStore()
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(docs, chunks, embedder, NewExtractorRegistry(), nopTxManager{}, t.TempDir(), logger)
	return svc, docs, chunks
}

func TestUploadProcessesToReady(t *testing.T) {
	svc, docs, chunks := testService(t, &stubEmbedder{})

	content := "The release captain promotes staging to production every Tuesday."
	doc, err := svc.Upload(context.Background(), "user-1", "release.md", int64(len(content)), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if doc.Status != models.DocumentStatusPending {
		t.Errorf("status after upload = %q, want pending", doc.Status)
	}

	svc.Wait()

	status, errMsg := docs.status(t, doc.ID)
	if status != models.DocumentStatusReady {
		t.Fatalf("status after processing = %q (error: %v), want ready", status, errMsg)
	}
	if chunks.count(doc.ID) == 0 {
		t.Error("no chunks indexed")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := testService(t, &stubEmbedder{})

	_, err := svc.Upload(context.Background(), "user-1", "scan.pdf", 10, strings.NewReader("0123456789"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEmbedFailureMarksFailed(t *testing.T) {
	svc, docs, _ := testService(t, &stubEmbedder{err: errors.New("embeddings endpoint down")})

	content := "Expenses under 50 euros need no pre-approval."
	doc, err := svc.Upload(context.Background(), "user-1", "policy.txt", int64(len(content)), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	svc.Wait()

	status, errMsg := docs.status(t, doc.ID)
	if status != models.DocumentStatusFailed {
		t.Fatalf("status = %q, want failed", status)
	}
	if errMsg == nil || !strings.Contains(*errMsg, "embeddings endpoint down") {
		t.Errorf("error message = %v, want embed failure recorded", errMsg)
	}
}

func TestReprocessRecoversFailedDocument(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("temporarily down")}
	svc, docs, chunks := testService(t, embedder)

	content := "Book flights through the travel portal."
	doc, err := svc.Upload(context.Background(), "user-1", "travel.txt", int64(len(content)), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	svc.Wait()

	if status, _ := docs.status(t, doc.ID); status != models.DocumentStatusFailed {
		t.Fatalf("precondition: status = %q, want failed", status)
	}

	embedder.err = nil
	if _, err := svc.Reprocess(context.Background(), doc.ID, "user-1"); err != nil {
		t.Fatalf("Reprocess failed: %v", err)
	}
	svc.Wait()

	status, _ := docs.status(t, doc.ID)
	if status != models.DocumentStatusReady {
		t.Fatalf("status after reprocess = %q, want ready", status)
	}
	if chunks.count(doc.ID) == 0 {
		t.Error("no chunks indexed after reprocess")
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	svc, _, _ := testService(t, &stubEmbedder{})

	content := "Request VPN access through the internal portal."
	doc, err := svc.Upload(context.Background(), "user-1", "onboarding.txt", int64(len(content)), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	svc.Wait()

	if err := svc.Delete(context.Background(), doc.ID, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), doc.ID, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
