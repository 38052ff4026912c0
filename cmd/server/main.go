package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/betterself/voice-therapist-api/internal/config"
	"github.com/betterself/voice-therapist-api/internal/database"
	"github.com/betterself/voice-therapist-api/internal/handler"
	"github.com/betterself/voice-therapist-api/internal/openai"
	"github.com/betterself/voice-therapist-api/internal/queue"
	"github.com/betterself/voice-therapist-api/internal/repository"
	"github.com/betterself/voice-therapist-api/internal/router"
	queue_publisher "github.com/betterself/voice-therapist-api/internal/service"
	"github.com/betterself/voice-therapist-api/internal/therapy"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	conversations := repository.NewConversationRepo(db)
	messages := repository.NewMessageRepo(db)
	subscriptions := repository.NewSubscriptionRepo(db)

	var completionOpts []openai.CompletionOption
	if cfg.CompletionModel != "" {
		completionOpts = append(completionOpts, openai.WithCompletionModel(cfg.CompletionModel))
	}
	completer := openai.NewCompletionClient(cfg.OpenAIKey, completionOpts...)
	transcriber := openai.NewTranscriptionClient(cfg.OpenAIKey)
	synthesizer := openai.NewSpeechClient(cfg.OpenAIKey)

	orchestrator := therapy.NewOrchestrator(
		conversations, messages, subscriptions,
		transcriber, completer, synthesizer,
		cfg.CallTimeout,
	)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	go func() {
		if err := queue.StartTurnConsumer(); err != nil {
			log.Printf("turn-consumer stopped: %v", err)
		}
	}()

	h := router.Handlers{
		Turn:          handler.NewTurnHandler(orchestrator, users, queue_publisher.PublishTurnCompleted),
		Users:         handler.NewUserHandler(users),
		Conversations: handler.NewConversationHandler(conversations, messages),
		Billing:       handler.NewBillingHandler(cfg, users, subscriptions),
	}

	e := echo.New()
	router.RegisterRoutes(e, h, cfg, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
