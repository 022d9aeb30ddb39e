package main

import (
	"context"
	"log"

	"github.com/neexa/neexa-backend/internal/server"
	"github.com/neexa/neexa-backend/internal/server/config"
)

func main() {
	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("neexa server: %v", err)
	}

	app.Run(context.Background())
}
