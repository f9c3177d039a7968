// kbseed bulk-loads knowledge-base articles from a JSON file into the
// database used by kbchatd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"kbchat/internal/chat/adapters"
	ports "kbchat/internal/chat/ports"
	"kbchat/internal/config"
	"kbchat/internal/db"
	"kbchat/internal/kb"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "articles.json", "JSON file with an array of articles")
	flag.Parse()

	if err := run(*configPath, *file); err != nil {
		color.Red("seed failed: %v", err)
		os.Exit(1)
	}
}

func run(configPath, file string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", file, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%s must contain a JSON array of articles: %w", file, err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	conn, err := db.Connect(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		return err
	}

	store := adapters.NewLibSQLArticleStore(conn)
	ctx := context.Background()

	created, skipped := 0, 0
	for i, body := range raw {
		if err := kb.ValidateArticlePayload(body); err != nil {
			color.Yellow("skipping article %d: %v", i, err)
			skipped++
			continue
		}

		var article ports.Article
		if err := json.Unmarshal(body, &article); err != nil {
			color.Yellow("skipping article %d: %v", i, err)
			skipped++
			continue
		}

		if err := store.Create(ctx, &article); err != nil {
			color.Yellow("skipping %q: %v", article.Title, err)
			skipped++
			continue
		}

		color.Green("created %q", article.Title)
		created++
	}

	fmt.Printf("done: %d created, %d skipped\n", created, skipped)
	return nil
}
