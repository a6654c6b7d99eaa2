package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classattend/internal/attendance"
	"classattend/internal/config"
	"classattend/internal/queue"
	"classattend/internal/store"
)

// Worker consumes committed mark events from the queue and writes the
// audit trail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, store.Key("marks"))
	}

	repo := attendance.NewRepository(db.Client)

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}

	log.Println("audit worker started")
	for msg := range msgs {
		date, err := time.Parse("2006-01-02", msg.Date)
		if err != nil {
			log.Printf("bad date in mark event %+v: %v", msg, err)
			continue
		}
		at := msg.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if err := repo.InsertMarkEvent(ctx, msg.RollNumber, msg.CourseCode, date, msg.Source, at); err != nil {
			log.Printf("audit insert failed for %s/%s: %v", msg.RollNumber, msg.CourseCode, err)
		}
	}
	log.Println("audit worker stopped")
}
