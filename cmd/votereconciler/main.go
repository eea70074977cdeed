package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/epoll/internal/adapters/repository/mongo"
	"github.com/vncsmyrnk/epoll/internal/core/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var uri, database string
	var timeout time.Duration

	flag.StringVar(&uri, "mongo-uri", os.Getenv("MONGODB_URI"), "MongoDB connection string")
	flag.StringVar(&database, "mongo-db", os.Getenv("MONGODB_DATABASE"), "MongoDB database name")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum job duration")
	flag.Parse()

	if uri == "" || database == "" {
		log.Fatal("mongo uri and database are required")
	}

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, uri)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	repo := mongo.NewDebateRepository(client.Database(database))
	reconciler := services.NewReconcileService(repo, slog.Default())

	log.Println("Starting vote reconciliation job...")

	fixed, err := reconciler.ReconcileAllVotes(ctx)
	if err != nil {
		log.Fatalf("Error reconciling votes: %v", err)
	}

	log.Printf("Vote reconciliation completed successfully, %d polls repaired.", fixed)
}
