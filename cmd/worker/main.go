package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/monitor"
	"github.com/tobi-04/srm-be-sub001/services"
)

// Standalone worker process. Multiple instances may run against the same
// database; job claims are conditional updates so instances never execute
// the same attempt twice, and the notification log guards against
// duplicate sends.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	config.InitDB()

	metricsAddr := os.Getenv("METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9091"
	}
	monitor.StartMetricsServer(metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	scheduler := services.NewSchedulerService(config.DB)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	worker := services.NewWorkerService(config.DB, services.MailFunc(config.SendMail), workerConcurrency())
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		services.RunQueueMaintenance(ctx, services.NewQueueService(config.DB))
	}()

	log.Println("worker process started, waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutdown signal received, stopping...")
	cancel()
	wg.Wait()
	log.Println("worker process stopped gracefully")
}

func workerConcurrency() int {
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return services.DefaultWorkerConcurrency
}
