// Interactive CLI for exercising the conversation pipeline against a real
// database without going through HTTP auth. Set DEFAULT_PROVIDER=script to
// run fully offline.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"loom/internal/config"
	"loom/internal/repository/postgres"
	chatsvc "loom/internal/service/chat"
	"loom/internal/service/reasoning"
	anthropicProvider "loom/internal/service/reasoning/providers/anthropic"
	scriptProvider "loom/internal/service/reasoning/providers/script"
	"loom/internal/service/retrieval"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

type CLI struct {
	ctx          context.Context
	orchestrator *chatsvc.Orchestrator
	chatSvc      *chatsvc.Service
	scanner      *bufio.Scanner
	userID       string
	logger       *slog.Logger
}

// cliNotifier prints orchestrator progress events as they happen.
type cliNotifier struct{}

func (cliNotifier) Notify(event string, data map[string]any) {
	switch event {
	case chatsvc.EventReasoning:
		fmt.Printf("%s⏳ thinking (round %v)...%s\n", colorBlue, data["round"], colorReset)
	case chatsvc.EventToolCall:
		fmt.Printf("%s⚙ tool call: %v%s\n", colorYellow, data["name"], colorReset)
	case chatsvc.EventToolResult:
		fmt.Printf("%s⚙ tool result: %v%s\n", colorYellow, data["name"], colorReset)
	case chatsvc.EventPersisting:
		fmt.Printf("%s⏳ saving...%s\n", colorBlue, colorReset)
	}
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	userID := os.Getenv("TEST_USER_ID")
	if userID == "" {
		fmt.Printf("%s❌ Error: TEST_USER_ID must be set in environment%s\n", colorRed, colorReset)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("%s❌ Failed to connect to database: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.Migrate(ctx, pool, tables, cfg.EmbeddingDims); err != nil {
		fmt.Printf("%s❌ Failed to migrate schema: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	threadRepo := postgres.NewThreadRepository(repoConfig)
	turnRepo := postgres.NewTurnRepository(repoConfig)
	chunkRepo := postgres.NewChunkRepository(repoConfig)

	factory := reasoning.NewFactory(cfg)
	factory.RegisterConstructor("anthropic", func(cfg *config.Config) (reasoning.Provider, error) {
		return anthropicProvider.NewProvider(cfg.AnthropicAPIKey)
	})
	factory.RegisterConstructor("script", func(cfg *config.Config) (reasoning.Provider, error) {
		return scriptProvider.NewProvider(), nil
	})
	provider, err := factory.GetProvider(cfg.DefaultProvider)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup provider: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	invoker := reasoning.NewInvoker(provider, reasoning.InvokerConfig{
		StepTimeout:    cfg.Orchestrator.StepTimeout,
		RetryBaseDelay: cfg.Orchestrator.RetryBaseDelay,
		RetryAttempts:  cfg.Orchestrator.RetryAttempts,
	}, logger)

	embedder := retrieval.NewOpenAIEmbedder(cfg.EmbeddingsBaseURL, cfg.EmbeddingsAPIKey, cfg.EmbeddingsModel)
	gateway := retrieval.NewGateway(embedder, chunkRepo, cfg.Orchestrator.MinScore, logger)

	orchestrator := chatsvc.NewOrchestrator(threadRepo, turnRepo, invoker, gateway, cfg.DefaultModel, cfg.Orchestrator, logger)

	cli := &CLI{
		ctx:          ctx,
		orchestrator: orchestrator,
		chatSvc:      chatsvc.NewService(threadRepo, turnRepo, logger),
		scanner:      bufio.NewScanner(os.Stdin),
		userID:       userID,
		logger:       logger,
	}
	cli.run(cfg)
}

func (cli *CLI) run(cfg *config.Config) {
	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║          Loom Chat CLI               ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("%sProvider: %s | Model: %s | User: %s%s\n", colorBlue, cfg.DefaultProvider, cfg.DefaultModel, cli.userID, colorReset)

	for {
		fmt.Println("\n" + strings.Repeat("─", 40))
		fmt.Println("Main Menu:")
		fmt.Println("1. Start new conversation")
		fmt.Println("2. View transcript")
		fmt.Println("3. Continue conversation")
		fmt.Println("4. Exit")
		fmt.Print("\nSelect option (1-4): ")

		choice := cli.readLine()
		fmt.Println()

		switch choice {
		case "1":
			cli.sendMessage("")
		case "2":
			if thread := cli.pickThread(); thread != "" {
				cli.showTranscript(thread)
			}
		case "3":
			if thread := cli.pickThread(); thread != "" {
				cli.showTranscript(thread)
				cli.sendMessage(thread)
			}
		case "4":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return
		default:
			fmt.Printf("%s⚠ Invalid choice. Please enter 1-4.%s\n", colorYellow, colorReset)
		}
	}
}

func (cli *CLI) sendMessage(threadID string) {
	fmt.Print("Your message: ")
	message := cli.readLine()
	if message == "" {
		fmt.Printf("%s⚠ Message cannot be empty%s\n", colorYellow, colorReset)
		return
	}
	fmt.Println()

	result, err := cli.orchestrator.Run(cli.ctx, &chatsvc.Request{
		UserID:   cli.userID,
		ThreadID: threadID,
		Message:  message,
		Notifier: cliNotifier{},
	})
	if err != nil {
		fmt.Printf("%s❌ Error: %v%s\n", colorRed, err, colorReset)
		return
	}

	fmt.Printf("\n%s[ASSISTANT]%s\n%s\n", colorGreen, colorReset, result.Answer)
	for _, src := range result.Sources {
		fmt.Printf("%s  source: %s (score %.2f)%s\n", colorBlue, src.Filename, src.Score, colorReset)
	}
	fmt.Printf("\n%s✓ Thread: %s%s\n", colorGreen, result.Thread.ID, colorReset)
}

// pickThread lists threads and returns the selected ID, or "" on cancel.
func (cli *CLI) pickThread() string {
	threads, err := cli.chatSvc.ListThreads(cli.ctx, cli.userID)
	if err != nil {
		fmt.Printf("%s❌ Failed to list threads: %v%s\n", colorRed, err, colorReset)
		return ""
	}
	if len(threads) == 0 {
		fmt.Printf("%s⚠ No threads found%s\n", colorYellow, colorReset)
		return ""
	}

	fmt.Println("Recent threads:")
	for i, thread := range threads {
		fmt.Printf("%d. %s (ID: %s)\n", i+1, thread.Title, thread.ID)
	}

	fmt.Print("\nSelect thread number (or 0 to cancel): ")
	choice := cli.readLine()
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(threads) {
		if idx != 0 {
			fmt.Printf("%s⚠ Invalid choice%s\n", colorYellow, colorReset)
		}
		return ""
	}
	return threads[idx-1].ID
}

func (cli *CLI) showTranscript(threadID string) {
	turns, err := cli.chatSvc.Transcript(cli.ctx, threadID, cli.userID)
	if err != nil {
		fmt.Printf("%s❌ Failed to load transcript: %v%s\n", colorRed, err, colorReset)
		return
	}

	fmt.Printf("\n%s--- Conversation ---%s\n", colorCyan, colorReset)
	for i := range turns {
		turn := &turns[i]
		roleColor := colorBlue
		if turn.Role == "assistant" {
			roleColor = colorGreen
		}
		fmt.Printf("%s[%s]%s\n%s\n\n", roleColor, strings.ToUpper(turn.Role), colorReset, turn.Content)
	}
}

func (cli *CLI) readLine() string {
	if !cli.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(cli.scanner.Text())
}
