package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/careroute/careroute/internal/config"
	"github.com/careroute/careroute/internal/database"
	"github.com/careroute/careroute/internal/migration"
	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/internal/repository"
	"github.com/careroute/careroute/internal/seeder"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const maxChunkSize = 1200

var (
	dryRun    = flag.Bool("dry-run", false, "Scrape and chunk pages without storing anything")
	outDir    = flag.String("out", "", "Write cleaned pages as .txt files into this directory instead of the database")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit = flag.Int("limit", 0, "Limit number of pages to process (0 = all)")
	delay     = flag.Duration("delay", 2*time.Second, "Delay between requests to the same host")

	unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// PolicySeeder scrapes policy pages and stores them as PolicyDocument chunks.
type PolicySeeder struct {
	scraper   *seeder.Scraper
	processor *seeder.ContentProcessor
	docs      models.PolicyDocumentRepository
	logger    *logrus.Logger
	processed int
	chunks    int
	errors    []error
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	urls := cfg.Seed.PolicyURLs
	if flag.NArg() > 0 {
		urls = flag.Args()
	}
	if len(urls) == 0 {
		logger.Fatal("No policy URLs configured; set SEED_POLICY_URLS or pass URLs as arguments")
	}
	if *pageLimit > 0 && *pageLimit < len(urls) {
		urls = urls[:*pageLimit]
		logger.WithField("limit", *pageLimit).Info("Limited pages to process")
	}

	var docs models.PolicyDocumentRepository
	if !*dryRun && *outDir == "" {
		if cfg.Database.URL == "" {
			logger.Fatal("DATABASE_URL is required unless -dry-run or -out is set")
		}

		dbManager, err := database.NewManager(&database.Config{DatabaseURL: cfg.Database.URL, LogLevel: cfg.LogLevel}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database manager")
		}
		defer dbManager.Close()

		if err := migration.NewRunner(dbManager, logger).RunMigrations("./migrations"); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		docs = repository.NewRepositoryManager(dbManager.DB).PolicyDocument
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.WithError(err).Fatal("Failed to create output directory")
		}
	}

	s := &PolicySeeder{
		scraper:   seeder.NewScraper(seeder.ScraperOptions{Delay: *delay}),
		processor: seeder.NewContentProcessor(),
		docs:      docs,
		logger:    logger,
	}

	logger.WithField("total_pages", len(urls)).Info("Starting policy seeding")
	s.Seed(urls)

	logger.WithFields(logrus.Fields{
		"processed": s.processed,
		"chunks":    s.chunks,
		"errors":    len(s.errors),
	}).Info("Policy seeding completed")

	for _, err := range s.errors {
		logger.WithError(err).Warn("Processing error")
	}
	if s.processed == 0 {
		os.Exit(1)
	}
}

func (s *PolicySeeder) Seed(urls []string) {
	for i, url := range urls {
		s.logger.WithFields(logrus.Fields{
			"url":      url,
			"progress": fmt.Sprintf("%d/%d", i+1, len(urls)),
		}).Info("Processing page")

		if err := s.processPage(url); err != nil {
			s.logger.WithError(err).WithField("url", url).Error("Failed to process page")
			s.errors = append(s.errors, fmt.Errorf("failed to process %s: %w", url, err))
			continue
		}
		s.processed++
	}
}

func (s *PolicySeeder) processPage(url string) error {
	page, err := s.scraper.Scrape(url)
	if err != nil {
		return err
	}

	chunks := s.processor.SplitIntoChunks(page.Content, maxChunkSize)

	s.logger.WithFields(logrus.Fields{
		"title":    page.Title,
		"words":    s.processor.CountWords(page.Content),
		"sections": len(page.Sections),
		"chunks":   len(chunks),
		"category": s.processor.Categorize(page.Content),
	}).Debug("Content extracted")

	switch {
	case *dryRun:
		s.logger.WithFields(logrus.Fields{
			"title":  page.Title,
			"chunks": len(chunks),
			"hash":   utils.MD5Hash(page.Content)[:8],
		}).Info("DRY RUN: Would store policy page")
	case *outDir != "":
		if err := writePage(*outDir, page); err != nil {
			return err
		}
	default:
		if err := s.storeChunks(page, chunks); err != nil {
			return err
		}
	}

	s.chunks += len(chunks)
	return nil
}

// storeChunks replaces the page's previous chunks with the current ones.
func (s *PolicySeeder) storeChunks(page *seeder.Page, chunks []string) error {
	if err := s.docs.Deactivate(page.URL); err != nil {
		return fmt.Errorf("failed to deactivate old chunks: %w", err)
	}

	for i, chunk := range chunks {
		doc := &models.PolicyDocument{
			Title:       page.Title,
			SourceURL:   page.URL,
			ChunkIndex:  i,
			Content:     chunk,
			ContentHash: utils.MD5Hash(page.URL + "\n" + chunk),
			Keywords:    s.processor.ExtractKeywords(chunk),
			WordCount:   s.processor.CountWords(chunk),
			IsActive:    true,
		}
		if err := s.docs.Upsert(doc); err != nil {
			return fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}
	return nil
}

func writePage(dir string, page *seeder.Page) error {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(page.Title), "_"), "_")
	if name == "" {
		name = utils.MD5Hash(page.URL)[:12]
	}

	body := fmt.Sprintf("%s\nSource: %s\n\n%s\n", page.Title, page.URL, page.Content)
	path := filepath.Join(dir, name+".txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
