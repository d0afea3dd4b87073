package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"loom/internal/config"
	"loom/internal/repository/postgres"
	"loom/internal/seed"
	"loom/internal/service/ingest"
	"loom/internal/service/retrieval"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	clearData := flag.Bool("clear-data", false, "Clear the seed user's data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	userID := os.Getenv("TEST_USER_ID")
	if userID == "" {
		userID = "seed-user"
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	switch {
	case *clearData:
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.Migrate(ctx, pool, tables, cfg.EmbeddingDims); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		log.Println("🧹 Clearing existing threads and documents...")
		if err := clearUserData(ctx, pool, tables, userID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Seed a sample conversation
	log.Println("💬 Seeding sample thread...")
	threadSeeder := seed.NewThreadSeeder(pool, tables, logger)
	if err := threadSeeder.SeedThreadData(ctx, userID); err != nil {
		log.Fatalf("Failed to seed thread data: %v", err)
	}

	// Seed documents through the ingest pipeline so they get chunked and
	// embedded exactly as uploads do. Requires a reachable embeddings
	// endpoint; run with --schema-only to skip.
	log.Println("📝 Seeding documents...")
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	chunkRepo := postgres.NewChunkRepository(repoConfig)
	embedder := retrieval.NewOpenAIEmbedder(cfg.EmbeddingsBaseURL, cfg.EmbeddingsAPIKey, cfg.EmbeddingsModel)
	txManager := postgres.NewTransactionManager(pool)
	ingestService := ingest.NewService(documentRepo, chunkRepo, embedder, ingest.NewExtractorRegistry(), txManager, cfg.UploadDir, logger)

	documents := seed.SeedDocuments()
	for i, docData := range documents {
		doc, err := ingestService.Upload(ctx, userID, docData.Filename, int64(len(docData.Content)), strings.NewReader(docData.Content))
		if err != nil {
			log.Printf("❌ Failed to seed document '%s': %v", docData.Filename, err)
			continue
		}
		log.Printf("✅ Uploaded document %d/%d: %s (ID: %s)", i+1, len(documents), docData.Filename, doc.ID)
	}

	// Wait for chunking and embedding to finish
	ingestService.Wait()

	log.Println("🎉 Seeding complete!")
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Chunks,
		tables.Turns,
		tables.Threads,
		tables.Documents,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearUserData clears all threads and documents owned by the seed user.
// Turns and chunks go with them via ON DELETE CASCADE.
func clearUserData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID string) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Threads+" WHERE user_id = $1", userID); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents+" WHERE user_id = $1", userID); err != nil {
		return err
	}
	return nil
}
