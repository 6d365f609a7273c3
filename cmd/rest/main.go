package main

import (
	"context"
	"log"

	"ai-storystudio-be/internal/bootstrap"
	"ai-storystudio-be/internal/config"
	"ai-storystudio-be/internal/model"
	"ai-storystudio-be/internal/server"
	"ai-storystudio-be/internal/tracer"
	"ai-storystudio-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (only when the postgres store is selected)
	var gormDB *gorm.DB
	if cfg.Store.Backend == "postgres" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Store.DBConnection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		if err := gormDB.AutoMigrate(&model.StorySession{}); err != nil {
			log.Panicf("Unable to migrate session schema: %v", err)
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	if container.NatsPub != nil {
		defer container.NatsPub.Close()
	}

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Telemetry Relay...")
		if err := container.TelemetryService.Consume(context.Background()); err != nil {
			log.Printf("Background Telemetry Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
