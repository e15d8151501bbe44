package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"memorylens/internal/api"
	"memorylens/internal/config"
	"memorylens/internal/database"
	"memorylens/internal/journal"
	"memorylens/internal/session"
	"memorylens/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithUploadTimeout(cfg.UploadTimeout),
	)
	provider := session.NewJWTProvider(cfg.SessionSecret)
	hub := web.NewHub(cfg.CORSOrigins)

	var repo journal.Repository
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		if err := journal.Migrate(db); err != nil {
			log.Fatal(err)
		}
		repo = journal.NewRepository(db)
	} else {
		log.Println("DATABASE_URL is empty, upload journal disabled")
	}

	registry := web.NewRegistry(client, hub, repo)
	handler := web.NewHandler(registry, hub, repo, cfg.AssetHost)

	r := web.NewRouter(web.Options{
		Provider:    provider,
		Handler:     handler,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      true,
	})

	log.Printf("memorylens web listening on %s, backend %s", cfg.ListenAddr, client.BaseURL())
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
