package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardlens/cardlens/internal/card"
	"github.com/cardlens/cardlens/internal/devserver"
	"github.com/cardlens/cardlens/internal/storage"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	imagesDir := os.Getenv("IMAGES_DIR")
	if imagesDir == "" {
		imagesDir = "./images"
	}

	credits := -1
	if creditsStr := os.Getenv("GRADING_CREDITS"); creditsStr != "" {
		parsed, err := strconv.Atoi(creditsStr)
		if err != nil {
			log.Fatal("Invalid GRADING_CREDITS:", err)
		}
		credits = parsed
	}

	streamDelay := 300 * time.Millisecond
	if delayStr := os.Getenv("STREAM_DELAY_MS"); delayStr != "" {
		ms, err := strconv.Atoi(delayStr)
		if err != nil {
			log.Fatal("Invalid STREAM_DELAY_MS:", err)
		}
		streamDelay = time.Duration(ms) * time.Millisecond
	}

	localStorage, err := storage.NewLocalStorage(imagesDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}

	app := devserver.NewApp(localStorage)
	app.Credits = credits
	app.StreamDelay = streamDelay
	app.Catalog = []card.Info{
		{Name: "Charizard", Set: "Base Set", Number: "4/102", Rarity: "Holo Rare", Year: 1999, Language: "English"},
		{Name: "Pikachu", Set: "Jungle", Number: "60/64", Rarity: "Common", Year: 1999, Language: "English"},
	}

	router := devserver.NewRouter(app)

	log.Printf("Grading dev server starting on port %s", port)
	log.Printf("Images directory: %s", imagesDir)
	if credits < 0 {
		log.Printf("Credits: unlimited")
	} else {
		log.Printf("Credits: %d", credits)
	}

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}
