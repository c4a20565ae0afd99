package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/logger"
)

// Vectorizer turns text into an embedding vector.
type Vectorizer interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Ingestor implements core.Embedder over a Store. Without a Vectorizer,
// records are stored as text and metadata only.
type Ingestor struct {
	store      *Store
	vectorizer Vectorizer
	logger     *logger.Logger
}

var _ core.Embedder = (*Ingestor)(nil)

// NewIngestor creates an Ingestor. vectorizer may be nil.
func NewIngestor(store *Store, vectorizer Vectorizer, log *logger.Logger) *Ingestor {
	return &Ingestor{store: store, vectorizer: vectorizer, logger: logger.OrNop(log)}
}

// Open opens the store in dir and builds an Ingestor that embeds with model
// at baseURL. An empty model stores records without vectors.
func Open(dir, baseURL, model string, log *logger.Logger) (*Ingestor, error) {
	store, err := OpenStore(dir, log)
	if err != nil {
		return nil, err
	}
	var vectorizer Vectorizer
	if model != "" {
		vectorizer = NewOllamaClient(baseURL, model)
	}
	return NewIngestor(store, vectorizer, log), nil
}

// Store exposes the underlying store.
func (i *Ingestor) Store() *Store {
	return i.store
}

// Close closes the underlying store.
func (i *Ingestor) Close() error {
	return i.store.Close()
}

// ValidateCollection rejects names that cannot be used as a key prefix.
func ValidateCollection(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: collection name is empty", core.ErrInvalidConfig)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: collection name %q contains '/'", core.ErrInvalidConfig, name)
	}
	return nil
}

// Ingest vectorizes and stores one batch. The batch is written only if every
// record was vectorized.
func (i *Ingestor) Ingest(ctx context.Context, collection string, records []core.EmbedRecord) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	stored := make([]StoredRecord, 0, len(records))
	for _, r := range records {
		rec := StoredRecord{ID: r.ID, Text: r.Text, Metadata: r.Metadata}
		if i.vectorizer != nil {
			vector, err := i.vectorizer.Embed(ctx, r.Text)
			if err != nil {
				return fmt.Errorf("embedding %s: %w", r.ID, err)
			}
			rec.Vector = vector
		}
		stored = append(stored, rec)
	}
	if err := i.store.Put(collection, stored); err != nil {
		return err
	}
	i.logger.Debug("batch stored", "collection", collection, "records", len(stored))
	return nil
}
