package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"offline-llm-be/internal/bootstrap"
	"offline-llm-be/internal/config"
	"offline-llm-be/internal/server"
	"offline-llm-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (opt-in via OTEL_ENABLED)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	go func() {
		log.Println("Background: Starting Session Reaper...")
		container.Reaper.Start(ctx)
	}()

	// 4. Boot Ingestion (index jobs consumed in the background)
	go func() {
		if _, err := container.KnowledgeService.BootIngest(ctx); err != nil {
			log.Printf("Boot ingestion error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case sig := <-quit:
		log.Printf("Received %s, shutting down...", sig)
	}

	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.NatsPublisher.Close()
	if err := container.Permanent.Close(); err != nil {
		log.Printf("Collection close error: %v", err)
	}
	_ = container.Logger.Sync()
}
