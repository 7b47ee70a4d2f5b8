package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/api"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/config"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/fetch"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/jobs"
	"github.com/naijabuzzed-bit/Achek-Downloader/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	if err := server.PrepareFilesystem(cfg); err != nil {
		log.Fatalf("Error preparing filesystem: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := jobs.NewRegistry()
	defer registry.Close()

	fetcher := fetch.NewYouTube(cfg.FetchTimeout, cfg.MaxFetchAttempts)
	mirror := jobs.NewMirror(cfg.RedisAddr, cfg.MirrorTTL)
	manager := jobs.NewManager(cfg, registry, fetcher, mirror)

	janitor := jobs.NewJanitor(cfg.ArtifactsDir, cfg.RetentionWindow, cfg.CleanupInterval)
	go janitor.Run(ctx)

	handler := api.NewHandler(manager, cfg)
	router := api.NewRouter(handler, cfg)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		log.Println("Shutdown requested")
		cancel()
		os.Exit(0)
	}()

	fmt.Println(">>> Achek Downloader Started")
	fmt.Printf(">>> Port: %s\n", cfg.Port)

	log.Fatal(http.ListenAndServe(cfg.Port, router))
}
