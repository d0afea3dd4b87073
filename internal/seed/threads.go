package seed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"loom/internal/repository/postgres"
)

// ThreadSeeder inserts sample conversation data for local development.
type ThreadSeeder struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewThreadSeeder creates a thread seeder.
func NewThreadSeeder(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *ThreadSeeder {
	return &ThreadSeeder{
		pool:   pool,
		tables: tables,
		logger: logger,
	}
}

// SeedThreadData creates a sample thread showing a full round: user message,
// tool audit turn, assistant answer with metadata. Fixed IDs keep reruns
// idempotent.
func (s *ThreadSeeder) SeedThreadData(ctx context.Context, userID string) error {
	now := time.Now()

	threadID := "11111111-1111-1111-1111-111111111111"
	query := `INSERT INTO ` + s.tables.Threads + ` (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, threadID, userID, "What is 2 + 2", now, now); err != nil {
		return err
	}

	turns := []struct {
		id       string
		role     string
		content  string
		metadata map[string]any
	}{
		{
			id:      "22222222-2222-2222-2222-222222222221",
			role:    "user",
			content: "What is 2 + 2?",
		},
		{
			id:      "22222222-2222-2222-2222-222222222222",
			role:    "tool",
			content: "4",
			metadata: map[string]any{
				"tool_name": "calculator",
			},
		},
		{
			id:      "22222222-2222-2222-2222-222222222223",
			role:    "assistant",
			content: "2 + 2 equals 4.",
			metadata: map[string]any{
				"tool_invocations": []map[string]any{
					{"name": "calculator", "input": map[string]any{"expression": "2 + 2"}},
				},
			},
		},
	}

	insert := `INSERT INTO ` + s.tables.Turns + ` (id, thread_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	for i, turn := range turns {
		// Stagger timestamps so ordering is stable
		createdAt := now.Add(time.Duration(i) * time.Second)
		if _, err := s.pool.Exec(ctx, insert, turn.id, threadID, turn.role, turn.content, turn.metadata, createdAt); err != nil {
			return err
		}
	}

	s.logger.Info("sample thread seeded", "thread_id", threadID, "turns", len(turns))
	return nil
}
