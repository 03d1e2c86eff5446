// Command seed-db loads a product catalog from a JSON file and seeds the
// default API key. It is meant for development and integration test setups;
// production catalogs come from repomd-ingest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/pkgforge/productd/internal/domain/auth"
	"github.com/pkgforge/productd/internal/domain/resolvable"
	"github.com/pkgforge/productd/internal/handler"
	"github.com/pkgforge/productd/internal/storage/postgres"
)

type productJSON struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Arch       string `json:"arch"`
	Vendor     string `json:"vendor"`
	Summary    string `json:"summary"`
	Repository string `json:"repository"`
	Status     string `json:"status"`
	Licenses   []struct {
		Language             string `json:"language"`
		Text                 string `json:"text"`
		ConfirmationRequired bool   `json:"confirmation_required"`
	} `json:"licenses"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PRODUCTD_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRODUCTD_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PRODUCTD_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PRODUCTD_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PRODUCTD_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewResolvableStore(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyStore(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, store resolvable.Store, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		status := resolvable.StatusNone
		if p.Status != "" {
			status = resolvable.Status(p.Status)
		}

		err := store.UpsertResolvable(ctx, resolvable.Properties{
			Name:       p.Name,
			Kind:       resolvable.KindProduct,
			Status:     status,
			Version:    p.Version,
			Arch:       p.Arch,
			Vendor:     p.Vendor,
			Summary:    p.Summary,
			Repository: p.Repository,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}

		for _, l := range p.Licenses {
			err := store.UpsertLicense(ctx, resolvable.License{
				Name:                 p.Name,
				Language:             l.Language,
				Text:                 l.Text,
				ConfirmationRequired: l.ConfirmationRequired,
			})
			if err != nil {
				return errors.Wrapf(err, "upsert license %s/%s", p.Name, l.Language)
			}
		}

		slog.Info("upserted product",
			slog.String("name", p.Name),
			slog.String("version", p.Version),
			slog.Int("licenses", len(p.Licenses)),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, keys *postgres.APIKeyStore, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	err := keys.Insert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: handler.HashKey(apiKey, []byte(pepper)),
		Name:    "Default test key",
		Scopes:  []string{"manage_products"},
	})
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}
