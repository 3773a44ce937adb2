package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/adapters/rest"
	"github.com/parleylabs/parley/client/config"
	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/auth"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/internal/mockapi"
	"github.com/parleylabs/parley/client/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Demo mode runs against an in-process scripted API
	if cfg.Demo {
		server := mockapi.New(logger)
		go func() {
			if err := server.Start(cfg.DemoAddr); err != nil {
				logger.Warn("mock API stopped", zap.Error(err))
			}
		}()
		cfg.BaseURL = "http://" + cfg.DemoAddr
		time.Sleep(100 * time.Millisecond)
		logger.Info("Demo mode: in-process API started", zap.String("addr", cfg.DemoAddr))
	}

	backend, err := rest.NewClient(rest.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create API client", zap.Error(err))
	}

	store := cache.NewStore(logger)
	defer store.Stop()

	tokens := auth.NewTokenStore(cfg.TokenFile, logger)
	authService := usecase.NewAuthService(backend, tokens, store, cfg.Locale, logger)
	catalog := usecase.NewCatalogService(backend, store, authService, logger)
	sessions := usecase.NewSessionService(backend, store, authService, logger)
	history := usecase.NewHistoryService(backend, store, authService, logger)

	ctx := context.Background()
	if err := authService.InitializeAuth(ctx); err != nil {
		logger.Fatal("failed to initialize auth", zap.Error(err))
	}

	stdin := bufio.NewScanner(os.Stdin)

	if authService.Identity() == nil {
		fmt.Print("What should we call you? ")
		if !stdin.Scan() {
			return
		}
		name := strings.TrimSpace(stdin.Text())
		if name == "" {
			name = "Friend"
		}
		identity, _ := authService.CreateGuest(ctx, name)
		if identity.Local {
			fmt.Println("(offline mode: progress won't be saved)")
		}
	}

	identity := authService.Identity()
	fmt.Printf("Welcome, %s!\n\n", identity.DisplayName)

	scenario, role := pickScenario(ctx, catalog, authService.Locale(), stdin)
	if scenario == nil {
		return
	}

	session, err := sessions.CreateSession(ctx, scenario.ID, role.ID, entities.RelationshipNormal, authService.Locale())
	if err != nil {
		fmt.Println(domain.UserMessage(err))
		return
	}

	fmt.Printf("\n%s: %s\n", role.Name, role.InitialMessage)
	fmt.Println("(type /end to finish early)")

	for {
		if sessions.Phase(session.ID) == usecase.PhaseCompleted {
			break
		}

		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		input := strings.TrimSpace(stdin.Text())

		if input == "/end" {
			fmt.Print("End this session? (y/n) ")
			if !stdin.Scan() {
				return
			}
			if strings.EqualFold(strings.TrimSpace(stdin.Text()), "y") {
				if err := sessions.RequestEndSession(session.ID); err == nil {
					_ = sessions.ConfirmEndSession(ctx, session.ID)
				}
			}
			continue
		}

		turn, err := sessions.SubmitTurn(ctx, session.ID, input)
		if err != nil {
			fmt.Println(domain.UserMessage(err))
			continue
		}
		fmt.Printf("%s: %s\n", role.Name, turn.AIResponse)

		if current, ok := sessions.Session(session.ID); ok {
			fmt.Printf("  [connection %.0f%%, turn %d/%d]\n",
				current.DisplayScore(), current.UserTurnCount(), current.MaxTurns)
		}
	}

	fmt.Println("\nSession complete!")
	showAnalytics(ctx, history, session.ID)

	fmt.Print("\nRate this session 1-5 (or press enter to skip): ")
	if stdin.Scan() {
		if rating, err := strconv.Atoi(strings.TrimSpace(stdin.Text())); err == nil {
			if err := sessions.RateSession(ctx, session.ID, rating, ""); err != nil {
				fmt.Println(domain.UserMessage(err))
			}
		}
	}

	if authService.ShouldShowConversionPrompt() {
		fmt.Println("\nEnjoying practice? Create an account to keep your history.")
		authService.DismissConversionPrompt()
	}
}

func pickScenario(ctx context.Context, catalog *usecase.CatalogService, locale string, stdin *bufio.Scanner) (*entities.Scenario, *entities.ScenarioRole) {
	scenarios, err := catalog.ListScenarios(ctx, entities.ScenarioFilter{Language: locale})
	if err != nil {
		fmt.Println(domain.UserMessage(err))
		return nil, nil
	}
	if len(scenarios) == 0 {
		fmt.Println("No scenarios available.")
		return nil, nil
	}

	fmt.Println("Pick a scenario:")
	for i, s := range scenarios {
		fmt.Printf("  %d. %s (%s, %s)\n", i+1, s.LocalizedTitle(locale), s.Category, s.Difficulty)
	}
	fmt.Print("> ")
	if !stdin.Scan() {
		return nil, nil
	}
	choice, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
	if err != nil || choice < 1 || choice > len(scenarios) {
		fmt.Println("Invalid choice.")
		return nil, nil
	}
	scenario := scenarios[choice-1]

	roles, err := catalog.ListRoles(ctx, scenario.ID)
	if err != nil || len(roles) == 0 {
		fmt.Println("No roles available for that scenario.")
		return nil, nil
	}
	role := roles[0]
	if len(roles) > 1 {
		fmt.Println("Who do you want to talk to?")
		for i, r := range roles {
			fmt.Printf("  %d. %s\n", i+1, r.LocalizedName(locale))
		}
		fmt.Print("> ")
		if !stdin.Scan() {
			return nil, nil
		}
		if idx, err := strconv.Atoi(strings.TrimSpace(stdin.Text())); err == nil && idx >= 1 && idx <= len(roles) {
			role = roles[idx-1]
		}
	}

	return scenario, role
}

func showAnalytics(ctx context.Context, history *usecase.HistoryService, sessionID string) {
	analytics, err := history.SessionAnalytics(ctx, sessionID)
	if err != nil {
		fmt.Println(domain.UserMessage(err))
		return
	}

	timeline := usecase.BuildScoreTimeline(
		analytics.FinalScore,
		analytics.TotalTurns,
		analytics.Breakthroughs,
		analytics.Setbacks,
	)
	fmt.Println("Score over time:")
	for _, point := range timeline {
		fmt.Printf("  turn %2d: %5.1f (%+.1f)\n", point.Turn, point.Score, point.Delta)
	}

	result := usecase.BuildPercentile(analytics.FinalScore, analytics.Distribution)
	fmt.Printf("You did better than %.0f%% of practicers.\n", result.BetterThanPercentage)

	insights, err := history.SessionInsights(ctx, sessionID)
	if err == nil {
		fmt.Println("\n" + insights.Summary)
	}
}
