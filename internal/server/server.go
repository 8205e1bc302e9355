package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"StoryBranch/internal/chapters"
	"StoryBranch/internal/database"
	"StoryBranch/internal/gamification"
	"StoryBranch/internal/notify"
)

type Server struct {
	port int

	db       *database.Store
	chapters *chapters.Service
}

func NewServer() *http.Server {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	port, _ := strconv.Atoi(envPort)

	store := database.New()
	svc := chapters.NewService(
		store,
		gamification.New(store.Database()),
		notify.NewOutbox(store.Database()),
	)

	NewServer := &Server{
		port: port,

		db:       store,
		chapters: svc,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
