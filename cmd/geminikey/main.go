package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/infra/credentials"
)

func main() {
	var (
		keyFlag    string
		showFlag   bool
		deleteFlag bool
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key to store (falls back to GEMINI_API_KEY)")
	flag.BoolVar(&showFlag, "show", false, "print the suffix of the stored key")
	flag.BoolVar(&deleteFlag, "delete", false, "remove the stored key")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to create pool: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	switch {
	case deleteFlag:
		if err := store.DeleteGeminiAPIKey(ctx); err != nil {
			exitWithError(fmt.Errorf("failed to delete gemini api key: %w", err))
		}
		fmt.Println("GEMINI API key removed")
	case showFlag:
		key, err := store.GeminiAPIKey(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("failed to read gemini api key: %w", err))
		}
		if key == "" {
			fmt.Println("no GEMINI API key stored")
			return
		}
		fmt.Printf("GEMINI API key stored, ends in ...%s\n", suffix(key))
	default:
		key := strings.TrimSpace(keyFlag)
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
		if key == "" {
			exitWithError(errors.New("GEMINI API key is required via -key or environment"))
		}
		if err := store.SetGeminiAPIKey(ctx, key); err != nil {
			exitWithError(fmt.Errorf("failed to persist gemini api key: %w", err))
		}
		fmt.Println("GEMINI API key stored successfully")
	}
}

func suffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
