package main

import (
	"log"

	"github.com/MrSnakeDoc/updater/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ updater failed to start: %v", err)
	}
}
