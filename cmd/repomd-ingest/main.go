// Command repomd-ingest loads rpm-md repository metadata into the catalog
// database. Each subdirectory of --data-dir is treated as one repository:
// repodata/repomd.xml names the primary metadata file, which is streamed
// and upserted as resolvables. Product license texts are loaded from
// --licenses-dir, one subdirectory per product containing license.txt and
// license.<lang>.txt files; a no-acceptance-needed marker file means the
// license does not require confirmation.
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/pkgforge/productd/internal/domain/resolvable"
	"github.com/pkgforge/productd/internal/locale"
	"github.com/pkgforge/productd/internal/storage/postgres"
)

// repomd mirrors the repodata/repomd.xml index.
type repomd struct {
	XMLName xml.Name     `xml:"repomd"`
	Data    []repomdData `xml:"data"`
}

type repomdData struct {
	Type     string `xml:"type,attr"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
}

// primaryPackage mirrors one <package> element of primary.xml. The file can
// be very large, so elements are decoded one at a time off a token stream.
type primaryPackage struct {
	Type    string `xml:"type,attr"`
	Name    string `xml:"name"`
	Arch    string `xml:"arch"`
	Version struct {
		Ver string `xml:"ver,attr"`
		Rel string `xml:"rel,attr"`
	} `xml:"version"`
	Summary  string `xml:"summary"`
	Packager string `xml:"packager"`
}

func main() {
	var (
		dataDir     string
		licensesDir string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory with one repository per subdirectory")
	flag.StringVar(&licensesDir, "licenses-dir", "", "directory with one license subdirectory per product (optional)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, licensesDir, databaseURL); err != nil {
		slog.Error("repomd ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("repomd ingest completed successfully")
}

func run(ctx context.Context, dataDir, licensesDir, databaseURL string) error {
	repos, err := findRepos(dataDir)
	if err != nil {
		return errors.Wrap(err, "find repositories")
	}
	if len(repos) == 0 {
		return errors.Errorf("no repositories with repodata/repomd.xml under %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewResolvableStore(pool)

	// One worker per repository.
	g, gctx := errgroup.WithContext(ctx)
	for _, repo := range repos {
		g.Go(ingestRepo(gctx, store, dataDir, repo))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if licensesDir != "" {
		if err := ingestLicenses(ctx, store, licensesDir); err != nil {
			return errors.Wrap(err, "ingest licenses")
		}
	}

	return nil
}

// findRepos returns the names of subdirectories of dataDir that contain a
// repodata/repomd.xml index.
func findRepos(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dataDir)
	}

	var repos []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		index := filepath.Join(dataDir, e.Name(), "repodata", "repomd.xml")
		if _, err := os.Stat(index); err == nil {
			repos = append(repos, e.Name())
		}
	}
	return repos, nil
}

func ingestRepo(ctx context.Context, store resolvable.Store, dataDir, repo string) func() error {
	return func() error {
		repoDir := filepath.Join(dataDir, repo)

		href, err := locatePrimary(filepath.Join(repoDir, "repodata", "repomd.xml"))
		if err != nil {
			return errors.Wrapf(err, "repo %s", repo)
		}

		var count int
		err = streamPrimary(ctx, filepath.Join(repoDir, filepath.FromSlash(href)), func(p primaryPackage) error {
			props := toProperties(p, repo)
			if err := store.UpsertResolvable(ctx, props); err != nil {
				return errors.Wrapf(err, "upsert %s", props.Name)
			}
			count++
			if count%10_000 == 0 {
				slog.Info("ingest progress", slog.String("repo", repo), slog.Int("resolvables", count))
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "repo %s", repo)
		}

		slog.Info("ingest complete", slog.String("repo", repo), slog.Int("resolvables", count))
		return nil
	}
}

// locatePrimary parses repomd.xml and returns the relative href of the
// primary metadata file.
func locatePrimary(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var index repomd
	if err := xml.NewDecoder(f).Decode(&index); err != nil {
		return "", errors.Wrapf(err, "decode %s", path)
	}

	for _, d := range index.Data {
		if d.Type == "primary" {
			return d.Location.Href, nil
		}
	}
	return "", errors.Errorf("no primary metadata in %s", path)
}

// streamPrimary decodes the gzip-compressed primary.xml one <package>
// element at a time and calls fn for each rpm entry.
func streamPrimary(ctx context.Context, path string, fn func(primaryPackage) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	decoder := xml.NewDecoder(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "package" {
			continue
		}

		var p primaryPackage
		if err := decoder.DecodeElement(&p, &se); err != nil {
			return errors.Wrapf(err, "decode package in %s", path)
		}
		if p.Type != "rpm" {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}

// toProperties maps a primary.xml package entry onto a catalog record. The
// kind is derived from rpm naming conventions: release packages describe
// products, patterns- packages describe patterns, everything else is a
// plain package.
func toProperties(p primaryPackage, repo string) resolvable.Properties {
	version := p.Version.Ver
	if p.Version.Rel != "" {
		version += "-" + p.Version.Rel
	}

	name := p.Name
	kind := resolvable.KindPackage
	switch {
	case strings.HasSuffix(p.Name, "-release"):
		kind = resolvable.KindProduct
		name = strings.TrimSuffix(p.Name, "-release")
	case strings.HasPrefix(p.Name, "patterns-"):
		kind = resolvable.KindPattern
	}

	return resolvable.Properties{
		Name:       name,
		Kind:       kind,
		Status:     resolvable.StatusNone,
		Version:    version,
		Arch:       p.Arch,
		Vendor:     p.Packager,
		Summary:    p.Summary,
		Repository: repo,
	}
}

// ingestLicenses loads product license texts. Each subdirectory of dir is
// named after a product and holds license.txt (default language) plus
// optional license.<lang>.txt translations. A no-acceptance-needed marker
// file clears the confirmation requirement for every text of that product.
func ingestLicenses(ctx context.Context, store resolvable.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read %s", dir)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		product := e.Name()
		productDir := filepath.Join(dir, product)

		confirmationRequired := true
		if _, err := os.Stat(filepath.Join(productDir, "no-acceptance-needed")); err == nil {
			confirmationRequired = false
		}

		files, err := os.ReadDir(productDir)
		if err != nil {
			return errors.Wrapf(err, "read %s", productDir)
		}

		var count int
		for _, file := range files {
			lang, ok := licenseLanguage(file.Name())
			if !ok {
				continue
			}
			text, err := os.ReadFile(filepath.Join(productDir, file.Name()))
			if err != nil {
				return errors.Wrapf(err, "read license %s", file.Name())
			}
			err = store.UpsertLicense(ctx, resolvable.License{
				Name:                 product,
				Language:             lang,
				Text:                 string(text),
				ConfirmationRequired: confirmationRequired,
			})
			if err != nil {
				return errors.Wrapf(err, "upsert license %s/%s", product, lang)
			}
			count++
		}

		slog.Info("licenses loaded",
			slog.String("product", product),
			slog.Int("languages", count),
			slog.Bool("confirmation_required", confirmationRequired),
		)
	}
	return nil
}

// licenseLanguage maps a license file name to its language code:
// license.txt carries the default language, license.<lang>.txt a
// translation. Other files are skipped.
func licenseLanguage(name string) (string, bool) {
	if name == "license.txt" {
		return locale.DefaultLanguage, true
	}
	rest, ok := strings.CutPrefix(name, "license.")
	if !ok {
		return "", false
	}
	lang, ok := strings.CutSuffix(rest, ".txt")
	if !ok || lang == "" {
		return "", false
	}
	return lang, true
}
