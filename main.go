package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/filehub/internal/metadata"
	"github.com/avolkov/filehub/internal/queue"
	"github.com/avolkov/filehub/internal/service"
	"github.com/avolkov/filehub/internal/storage"
	"github.com/avolkov/filehub/internal/urlsign"
)

func main() {
	config := LoadConfig()

	store, err := metadata.NewStore(config.Storage.Database)
	if err != nil {
		log.Fatal("Failed to initialize metadata store:", err)
	}
	defer store.Close()

	staging, err := storage.NewStaging(config.Storage.Staging)
	if err != nil {
		log.Fatal("Failed to create staging directory:", err)
	}

	local, err := storage.NewLocalDisk("local", config.Storage.Path, config.Server.BaseURL)
	if err != nil {
		log.Fatal("Failed to create storage directory:", err)
	}
	disks := storage.Disks{"local": local}

	if config.Storage.S3.Bucket != "" {
		s3disk, err := storage.NewS3Disk("s3", config.Storage.S3)
		if err != nil {
			log.Fatal("Failed to initialize S3 disk:", err)
		}
		disks["s3"] = s3disk
	}

	jobs, err := queue.New(config.Queue.Database, queue.Config{
		Workers:      config.Queue.Workers,
		PollInterval: time.Duration(config.Queue.PollIntervalMS) * time.Millisecond,
		MaxAttempts:  config.Queue.MaxAttempts,
	})
	if err != nil {
		log.Fatal("Failed to initialize job queue:", err)
	}
	defer jobs.Close()

	svcConfig := service.Config{
		DefaultDisk:     config.Storage.Disk,
		DefaultPath:     config.Storage.DefaultDir,
		PreviewDuration: time.Duration(config.Preview.DurationMinutes) * time.Minute,
		MaxUploadSizeKB: config.Upload.MaxSizeKB,
		BaseURL:         config.Server.BaseURL,
		ProcessDelay:    time.Duration(config.Upload.ProcessDelaySeconds) * time.Second,
		DeleteDelay:     time.Duration(config.Upload.DeleteDelaySeconds) * time.Second,
		Debug:           config.Server.Debug,
	}

	signer := urlsign.New(config.Preview.SigningSecret)
	files := service.NewFileService(store, disks, signer, jobs, svcConfig)
	upload := service.NewUploadService(staging, jobs, svcConfig)
	workers := service.NewWorkers(files, staging, disks, svcConfig)
	workers.Register(jobs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs.Start(ctx)

	sweepTTL := time.Duration(config.Upload.StagingTTLHours) * time.Hour
	if sweepTTL <= 0 {
		sweepTTL = 24 * time.Hour
	}
	go staging.RunSweeper(ctx, sweepTTL/4, sweepTTL)

	api := NewAPI(upload, files, store, disks, signer, []byte(config.Auth.Secret))

	router := gin.Default()
	api.RegisterRoutes(router)

	log.Printf("Starting server on port %s", config.Server.Port)
	if err := router.Run(":" + config.Server.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
