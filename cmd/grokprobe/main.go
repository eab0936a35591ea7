package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"h1nted/internal/config"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/services"
	"h1nted/internal/repository/postgres"
	"h1nted/internal/service"
	"h1nted/internal/service/formula"
	"h1nted/internal/service/grok"
	"h1nted/internal/service/storage"
	"h1nted/internal/service/usage"
	"h1nted/internal/service/xai"

	"github.com/joho/godotenv"
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

// CLI drives the grok pipeline from a terminal, bypassing HTTP and auth
type CLI struct {
	ctx       context.Context
	grok      services.GrokService
	reports   services.SavedReportService
	history   services.ChatHistoryService
	scanner   *bufio.Scanner
	userID    string
	profileID string
	language  string
	logger    *slog.Logger
}

// setupLogger writes INFO text to the console and DEBUG JSON to a log file
func setupLogger(cfg *config.Config) (*slog.Logger, string, error) {
	dir := cfg.LogDir
	if dir == "" {
		dir = "logs"
	}
	logFile, err := config.SetupLogFile(dir, cfg.LogMaxFiles)
	if err != nil {
		return nil, "", err
	}

	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	file := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})
	return slog.New(config.NewMultiHandler(console, file)), logFile.Name(), nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("%s❌ Failed to load configuration: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	logger, logFile, err := setupLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("session started", "log_file", logFile)

	userID := os.Getenv("TEST_USER_ID")
	profileID := os.Getenv("TEST_PROFILE_ID")
	if profileID == "" {
		profileID = "seed-profile"
	}
	if userID == "" {
		logger.Error("missing required environment variables")
		fmt.Printf("%s❌ Error: TEST_USER_ID must be set in environment%s\n", colorRed, colorReset)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		fmt.Printf("%s❌ Failed to connect to database: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer pool.Close()

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: postgres.NewTableNames(), Logger: logger}
	chatRepo := postgres.NewChatMessageRepository(repoConfig)
	reportRepo := postgres.NewSavedReportRepository(repoConfig)

	prompts, err := grok.LoadPrompts()
	if err != nil {
		logger.Error("failed to load prompts", "error", err)
		os.Exit(1)
	}

	// Usage goes straight to the repository; there is no server to post to
	usageService := usage.NewService(postgres.NewUsageRepository(repoConfig), usage.Costs{
		Chat:      cfg.Usage.CostChat,
		Image:     cfg.Usage.CostImage,
		CDRs:      cfg.Usage.CostCDRs,
		Profiling: cfg.Usage.CostProfiling,
	}, logger)

	client := xai.NewClient(xai.Config{
		APIKey:         cfg.XAI.APIKey,
		BaseURL:        cfg.XAI.BaseURL,
		Model:          cfg.XAI.Model,
		Retries:        cfg.XAI.Retries,
		Budget:         cfg.XAI.Budget(),
		AttemptTimeout: cfg.XAI.AttemptTimeout(),
		BackoffBase:    cfg.XAI.BackoffBase(),
		Temperature:    cfg.XAI.Temperature,
		MaxTokens:      cfg.XAI.MaxTokens,
	}, nil, logger)

	grokService := grok.NewService(
		grok.NewValidator(cfg.ImageMaxCount, cfg.ImageMaxBytes, cfg.DefaultLanguage),
		grok.NewAssembler(chatRepo, reportRepo,
			formula.NewLoader(storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey), logger),
			prompts,
			grok.AssemblerConfig{
				HistoryWindow:          cfg.HistoryWindow,
				MaxImages:              cfg.ImageMaxCount,
				ProfilingFormulaBucket: cfg.ProfilingFormulaBucket,
				ProfilingFormulaKey:    cfg.ProfilingFormulaKey,
				CDRsFormulaBucket:      cfg.CDRsFormulaBucket,
				CDRsFormulaKey:         cfg.CDRsFormulaKey,
			}, logger),
		client,
		grok.NewSink(postgres.NewTransactionManager(pool, logger), chatRepo, reportRepo,
			&directUsage{svc: usageService, userID: userID, logger: logger}, prompts, cfg.AutosaveFolder),
		logger,
	)

	cli := &CLI{
		ctx:       ctx,
		grok:      grokService,
		reports:   service.NewSavedReportService(reportRepo, logger),
		history:   service.NewChatHistoryService(chatRepo, cfg.HistoryWindow, logger),
		scanner:   bufio.NewScanner(os.Stdin),
		userID:    userID,
		profileID: profileID,
		language:  cfg.DefaultLanguage,
		logger:    logger,
	}
	cli.run()
}

// directUsage records usage synchronously for the CLI's single user
type directUsage struct {
	svc    services.UsageService
	userID string
	logger *slog.Logger
}

func (d *directUsage) Notify(_, mode, profileID string) {
	if _, err := d.svc.Increment(context.Background(), d.userID, &models.IncrementUsageRequest{Mode: mode, ProfileID: profileID}); err != nil {
		d.logger.Warn("usage increment failed", "mode", mode, "error", err)
	}
}

func (cli *CLI) run() {
	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║        H1NTED grok-3 probe           ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("%sUser: %s | Profile: %s%s\n\n", colorBlue, cli.userID, cli.profileID, colorReset)

	for {
		fmt.Println("\n" + strings.Repeat("─", 40))
		fmt.Println("Main Menu:")
		fmt.Println("1. Send chat message")
		fmt.Println("2. Run profiling")
		fmt.Println("3. Compare saved reports (CDRs)")
		fmt.Println("4. View chat history")
		fmt.Println("5. Exit")
		fmt.Print("\nSelect option (1-5): ")

		choice := cli.readLine()
		fmt.Println()
		cli.logger.Debug("menu selection", "choice", choice)

		switch choice {
		case "1":
			cli.chatFlow(false)
		case "2":
			cli.chatFlow(true)
		case "3":
			cli.cdrsFlow()
		case "4":
			cli.viewHistory()
		case "5":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return
		default:
			fmt.Printf("%s⚠ Invalid choice. Please enter 1-5.%s\n", colorYellow, colorReset)
		}
	}
}

func (cli *CLI) chatFlow(profiling bool) {
	fmt.Print("Your message: ")
	prompt := cli.readLine()

	cli.send(&services.GrokRequest{
		ProfileID:    cli.profileID,
		Prompt:       prompt,
		Profiling:    profiling,
		UserLanguage: cli.language,
	})
}

func (cli *CLI) cdrsFlow() {
	reports, err := cli.reports.List(cli.ctx, cli.userID, "")
	if err != nil {
		fmt.Printf("%s❌ Failed to list reports: %v%s\n", colorRed, err, colorReset)
		return
	}
	if len(reports) < 2 {
		fmt.Printf("%s⚠ Need at least two saved reports (run the seed command)%s\n", colorYellow, colorReset)
		return
	}

	for i, r := range reports {
		fmt.Printf("%d. %s [%s]\n", i+1, r.ProfileName, r.Folder)
	}
	fmt.Print("\nReports to compare (e.g. 1,2): ")

	var ids []string
	for _, field := range strings.Split(cli.readLine(), ",") {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(field), "%d", &n); err == nil && n >= 1 && n <= len(reports) {
			ids = append(ids, reports[n-1].ID)
		}
	}

	fmt.Print("Prompt (optional): ")
	prompt := cli.readLine()

	cli.send(&services.GrokRequest{
		ProfileID:       cli.profileID,
		Prompt:          prompt,
		Mode:            "cdrs",
		SavedMessageIDs: ids,
		UserLanguage:    cli.language,
		Stream:          true,
	})
}

func (cli *CLI) send(req *services.GrokRequest) {
	req.UserID = cli.userID
	fmt.Printf("\n%s⏳ Waiting for grok-3...%s\n", colorBlue, colorReset)

	out, err := cli.grok.Complete(cli.ctx, req)
	if out != nil {
		cli.logger.Info("context assembled",
			"branch", out.Meta.Branch,
			"history_count", out.Meta.HistoryCount,
			"cdrs_formula", out.Meta.CDRsFormula,
			"prof_sig", out.Meta.ProfilingSignature,
		)
	}
	if err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		return
	}

	if out.Stream != nil {
		fmt.Printf("\n%sAssistant:%s ", colorGreen, colorReset)
		if err := out.Stream.Relay(cli.ctx, &terminalWriter{}); err != nil {
			fmt.Printf("\n%s❌ Stream failed: %v%s\n", colorRed, err, colorReset)
		}
		fmt.Println()
		return
	}
	fmt.Printf("\n%sAssistant (%s):%s %s\n", colorGreen, out.Response.Model, colorReset, out.Response.Result)
}

// terminalWriter prints streamed deltas as they arrive
type terminalWriter struct{}

func (terminalWriter) WriteEvent(data []byte) error {
	var acc xai.TextAccumulator
	if err := acc.Add(data); err == nil {
		fmt.Print(acc.String())
	}
	return nil
}

func (cli *CLI) viewHistory() {
	rows, err := cli.history.Recent(cli.ctx, cli.userID, cli.profileID)
	if err != nil {
		fmt.Printf("%s❌ Failed to load history: %v%s\n", colorRed, err, colorReset)
		return
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo recent messages for this profile.%s\n", colorYellow, colorReset)
		return
	}
	for _, row := range rows {
		color := colorBlue
		if row.Role == models.ChatRoleAssistant {
			color = colorGreen
		}
		fmt.Printf("%s[%s] %s:%s %s\n", color, row.Timestamp.Format("15:04:05"), row.Role, colorReset, row.Content)
	}
}

func (cli *CLI) readLine() string {
	if !cli.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(cli.scanner.Text())
}
