package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kris790/Kaleidoscope/internal/db"
	"github.com/kris790/Kaleidoscope/internal/infra"
)

func main() {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m, err := db.NewMigrator(ctx, dbURL, logger)
	if err != nil {
		exitWithError(err)
	}
	defer m.Close()

	applied, err := m.Up(ctx)
	if err != nil {
		exitWithError(err)
	}
	if len(applied) == 0 {
		fmt.Println("schema is up to date")
		return
	}
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
