package main

import (
	"context"
	"time"

	"github.com/rangapin/forum/config"
	"github.com/rangapin/forum/models"
	"github.com/rangapin/forum/realtime"
	"github.com/rangapin/forum/routes"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Category{}, &models.Post{}, &models.Reply{}, &models.Report{})
	st := store.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.SeedCategories(ctx); err != nil {
		utils.Sugar.Fatalf("category seed failed: %v", err)
	}
	cancel()

	// Redis fans events out across instances; without it, events stay
	// in-process and only single-instance deployments refresh live.
	var hub realtime.Hub
	if rc := utils.GetRedis(); rc != nil {
		hub = realtime.NewRedisHub(rc, utils.Logger)
	} else {
		utils.Sugar.Warn("redis unavailable, realtime events limited to this process")
		hub = realtime.NewMemoryHub()
	}

	r := routes.SetupRouter(st, hub)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	// Zero write timeout: event streams stay open for as long as the page does.
	srv := utils.NewServer(":"+cfg.AppPort, r, utils.DEFAULT_READ_TIMEOUT, 0)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
