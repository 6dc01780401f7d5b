package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-ayurmart/internal/db"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to revert with the down command")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	switch flag.Arg(0) {
	case "up", "":
		if err := db.Migrate(dbURL); err != nil {
			log.Fatal(err)
		}
		log.Println("migrations applied")
	case "down":
		if err := db.Rollback(dbURL, *steps); err != nil {
			log.Fatal(err)
		}
		log.Printf("reverted %d migration(s)", *steps)
	case "version":
		v, dirty, err := db.Version(dbURL)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("version %d dirty=%t", v, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
