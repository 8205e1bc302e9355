package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"StoryBranch/internal/database"
	"StoryBranch/internal/notify"
	"StoryBranch/internal/server"
)

func gracefulShutdown(apiServer *http.Server, done chan bool, stopRelay chan struct{}) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// Stop the notification relay
	close(stopRelay)

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	apiServer := server.NewServer()

	log.Println("Server is running on port: ", apiServer.Addr)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	store := database.New()
	if err := store.EnsureIndexes(context.Background()); err != nil {
		log.Printf("Index bootstrap error: %v", err)
	}

	// Relay pending notifications out of the outbox in the background
	outbox := notify.NewOutbox(store.Database())
	stopRelay := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n, err := outbox.RelayPending(context.Background()); err != nil {
					log.Printf("Notification relay error: %v", err)
				} else if n > 0 {
					log.Printf("Relayed %d notifications", n)
				}
			case <-stopRelay:
				return
			}
		}
	}()

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done, stopRelay)

	err := apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
}
