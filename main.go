package main

import (
	"time"

	"blogicum/config"
	"blogicum/models"
	"blogicum/routes"
	"blogicum/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Location{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.PageView{},
		&models.PostImage{},
	)

	r := routes.SetupRouter(db)

	// Best-effort removal of image files whose posts are gone
	utils.StartImageSweeper(db, 10*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
