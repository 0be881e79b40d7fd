package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	"github.com/papercomputeco/tabletalk/pkg/vector"
	"github.com/papercomputeco/tabletalk/pkg/vector/sqlitevec"
)

const (
	DefaultConcurrency = 4
	addBatchSize       = 256
)

// BuildOpts configures an offline index build.
type BuildOpts struct {
	// Dir is the index directory to create or replace.
	Dir string

	// Open, when set, sends the documents to a remote vector store instead of
	// building a local index under Dir. It is called once the embedding
	// dimension is known so a new collection can be sized.
	Open func(ctx context.Context, dims uint) (vector.Driver, error)

	// Documents are the texts to index. Embeddings are filled in by Build.
	Documents []vector.Document

	Embedder          embeddings.Embedder
	EmbeddingProvider string
	EmbeddingModel    string
	Sources           []string

	// Concurrency bounds in-flight embedding calls.
	Concurrency int

	Logger *slog.Logger
}

// DummyDocument is the placeholder indexed in place of an empty corpus.
func DummyDocument() vector.Document {
	return vector.Document{
		ID:       DummyID,
		Text:     DummyID,
		Metadata: map[string]string{"id": DummyID, "source": DummyID},
	}
}

// Build embeds the documents, writes a sqlite-vec index and manifest into a
// staging directory beside Dir, then swaps the staging directory into place.
// Dir is never left half-written: on failure the staging directory is removed
// and any previous index stays as it was.
//
// With Open set the embedded documents are upserted into the returned store
// instead and no local files are written.
func Build(ctx context.Context, o BuildOpts) (Manifest, error) {
	if o.Dir == "" && o.Open == nil {
		return Manifest{}, errors.New("index directory is required")
	}
	if o.Embedder == nil {
		return Manifest{}, errors.New("embedder is required")
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	docs := make([]vector.Document, len(o.Documents))
	copy(docs, o.Documents)
	if len(docs) == 0 {
		logger.Warn("empty corpus, indexing placeholder document")
		docs = []vector.Document{DummyDocument()}
	}

	if err := checkUniqueIDs(docs); err != nil {
		return Manifest{}, err
	}

	if err := embedAll(ctx, o.Embedder, docs, o.Concurrency); err != nil {
		return Manifest{}, err
	}

	dims := uint(len(docs[0].Embedding))
	for _, d := range docs {
		if uint(len(d.Embedding)) != dims {
			return Manifest{}, fmt.Errorf("document %s has %d dimensions, expected %d", d.ID, len(d.Embedding), dims)
		}
	}
	if dims == 0 {
		return Manifest{}, errors.New("embedder returned empty vectors")
	}

	manifest := Manifest{
		Dimensions:        dims,
		Documents:         len(docs),
		EmbeddingProvider: o.EmbeddingProvider,
		EmbeddingModel:    o.EmbeddingModel,
		Sources:           o.Sources,
		BuiltAt:           time.Now().UTC(),
	}

	if o.Open != nil {
		if err := upload(ctx, o.Open, docs, dims); err != nil {
			return Manifest{}, err
		}
		logger.Info("evidence uploaded", "documents", manifest.Documents, "dimensions", dims)
		return manifest, nil
	}

	dir := filepath.Clean(o.Dir)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating index parent dir: %w", err)
	}

	staging := dir + ".staging-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.Mkdir(staging, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating staging dir: %w", err)
	}

	if err := writeIndex(ctx, staging, docs, manifest, logger); err != nil {
		_ = os.RemoveAll(staging)
		return Manifest{}, err
	}

	if err := swapDir(staging, dir); err != nil {
		_ = os.RemoveAll(staging)
		return Manifest{}, err
	}

	logger.Info("evidence index built",
		"dir", dir,
		"documents", manifest.Documents,
		"dimensions", manifest.Dimensions,
	)
	return manifest, nil
}

// checkUniqueIDs rejects a corpus where two documents share an ID. Stores
// upsert by ID, so a duplicate would silently replace an earlier review.
func checkUniqueIDs(docs []vector.Document) error {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.ID]; ok {
			return fmt.Errorf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

func embedAll(ctx context.Context, embedder embeddings.Embedder, docs []vector.Document, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range docs {
		g.Go(func() error {
			emb, err := embedder.Embed(gCtx, docs[i].Text)
			if err != nil {
				return fmt.Errorf("embedding document %s: %w", docs[i].ID, err)
			}
			docs[i].Embedding = emb
			return nil
		})
	}

	return g.Wait()
}

func writeIndex(ctx context.Context, dir string, docs []vector.Document, manifest Manifest, logger *slog.Logger) error {
	driver, err := sqlitevec.NewDriver(sqlitevec.Config{
		DBPath:     filepath.Join(dir, IndexFile),
		Dimensions: manifest.Dimensions,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating index database: %w", err)
	}

	if err := addBatches(ctx, driver, docs); err != nil {
		driver.Close()
		return err
	}

	if err := driver.Close(); err != nil {
		return fmt.Errorf("closing index database: %w", err)
	}

	return WriteManifest(dir, manifest)
}

func upload(ctx context.Context, open func(context.Context, uint) (vector.Driver, error), docs []vector.Document, dims uint) error {
	driver, err := open(ctx, dims)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	if err := addBatches(ctx, driver, docs); err != nil {
		driver.Close()
		return err
	}
	return driver.Close()
}

func addBatches(ctx context.Context, driver vector.Driver, docs []vector.Document) error {
	for start := 0; start < len(docs); start += addBatchSize {
		end := min(start+addBatchSize, len(docs))
		if err := driver.Add(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("writing documents: %w", err)
		}
	}
	return nil
}

// swapDir replaces dst with src. The previous dst is moved aside first and
// removed once src is in place.
func swapDir(src, dst string) error {
	var retired string
	if _, err := os.Stat(dst); err == nil {
		retired = dst + ".old-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := os.Rename(dst, retired); err != nil {
			return fmt.Errorf("moving previous index aside: %w", err)
		}
	}

	if err := os.Rename(src, dst); err != nil {
		if retired != "" {
			_ = os.Rename(retired, dst)
		}
		return fmt.Errorf("installing new index: %w", err)
	}

	if retired != "" {
		_ = os.RemoveAll(retired)
	}
	return nil
}
