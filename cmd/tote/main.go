package main

import (
	"log"

	"github.com/tote-app/tote/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ tote failed to start: %v", err)
	}
}
