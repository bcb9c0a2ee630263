package main

import (
	"net/http"
	"os"

	"noteflow/config/database"
	"noteflow/internal/auth"
	"noteflow/internal/store/postgres"
	"noteflow/pkg/logger"
	"noteflow/router"
	"noteflow/socket"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Sugar.Fatal("JWT_SECRET environment variable not set")
	}

	db := database.Connect()
	defer db.Close()

	notes := postgres.NewNoteStore(db)
	users := postgres.NewUserStore(db)
	verifier := auth.NewVerifier(jwtSecret)

	hub := socket.NewHub()
	go hub.Run()
	defer hub.Stop()

	sync := socket.NewSynchronizer(hub, notes, users)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	logger.Sugar.Infof("Collaboration backend listening on %s", addr)
	if err := http.ListenAndServe(addr, router.Setup(hub, sync, verifier, users)); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
