package insurance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/careroute/careroute/internal/models"
	"github.com/sirupsen/logrus"
)

// LoadDir indexes every .txt and .md file in dir. A missing directory is not an error.
func LoadDir(idx *Index, dir string, logger *logrus.Logger) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.WithField("dir", dir).Warn("Policy directory does not exist")
		return 0, nil
	}

	var files []string
	for _, pattern := range []string{"*.txt", "*.md"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return 0, fmt.Errorf("failed to list policy files: %w", err)
		}
		files = append(files, matches...)
	}

	total := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("failed to read %s: %w", path, err)
		}

		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		chunks := idx.Add(title, path, string(data))
		total += chunks

		logger.WithFields(logrus.Fields{
			"file":   path,
			"chunks": chunks,
		}).Info("Policy file indexed")
	}

	if len(files) == 0 {
		logger.WithField("dir", dir).Warn("No policy files found")
	}
	return total, nil
}

// LoadRepository indexes the active policy documents stored by the seed command.
func LoadRepository(idx *Index, repo models.PolicyDocumentRepository, logger *logrus.Logger) (int, error) {
	docs, err := repo.GetActive()
	if err != nil {
		return 0, fmt.Errorf("failed to load policy documents: %w", err)
	}

	for _, doc := range docs {
		idx.AddChunk(doc.Title, doc.SourceURL, doc.Content, []string(doc.Keywords))
	}

	logger.WithField("documents", len(docs)).Info("Policy documents loaded from database")
	return len(docs), nil
}
