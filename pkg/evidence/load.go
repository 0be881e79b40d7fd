package evidence

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	vectorutils "github.com/papercomputeco/tabletalk/pkg/vector/utils"
)

// LoadOpts locates an index for serving.
type LoadOpts struct {
	// Provider is the vector store: sqlite-vec (default), chroma or qdrant.
	Provider string

	// Dir is the sqlite-vec index directory.
	Dir string

	// Target, APIKey and Collection address a remote store.
	Target     string
	APIKey     string
	Collection string

	Embedder embeddings.Embedder
	Logger   *slog.Logger
}

// Load opens an index read-only. It never fails: any problem (missing
// directory, bad manifest, unopenable database, missing tables, unreachable
// store) is logged as a warning and reported as a nil *Index, which callers
// treat as "index unavailable".
func Load(ctx context.Context, o LoadOpts) *Index {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if o.Embedder == nil {
		logger.Warn("evidence index unavailable", "reason", "no embedder configured")
		return nil
	}

	if o.Provider == "" || o.Provider == vectorutils.SQLiteVec {
		return loadLocal(ctx, o, logger)
	}
	return loadRemote(ctx, o, logger)
}

func loadLocal(ctx context.Context, o LoadOpts, logger *slog.Logger) *Index {
	if o.Dir == "" {
		logger.Warn("evidence index unavailable", "reason", "no index directory configured")
		return nil
	}

	info, err := os.Stat(o.Dir)
	if err != nil || !info.IsDir() {
		logger.Warn("evidence index unavailable", "dir", o.Dir, "reason", "index directory missing")
		return nil
	}

	manifest, err := ReadManifest(o.Dir)
	if err != nil {
		logger.Warn("evidence index unavailable", "dir", o.Dir, "error", err)
		return nil
	}

	dbPath := filepath.Join(o.Dir, IndexFile)
	if _, err := os.Stat(dbPath); err != nil {
		logger.Warn("evidence index unavailable", "dir", o.Dir, "reason", "index database missing")
		return nil
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: vectorutils.SQLiteVec,
		TargetURL:    dbPath,
		Logger:       logger,
	})
	if err != nil {
		logger.Warn("evidence index unavailable", "dir", o.Dir, "error", err)
		return nil
	}

	logger.Info("evidence index loaded",
		"dir", o.Dir,
		"documents", manifest.Documents,
		"dimensions", manifest.Dimensions,
		"embedding_model", manifest.EmbeddingModel,
	)
	return NewIndex(driver, o.Embedder, manifest)
}

func loadRemote(ctx context.Context, o LoadOpts, logger *slog.Logger) *Index {
	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType:   o.Provider,
		TargetURL:      o.Target,
		APIKey:         o.APIKey,
		CollectionName: o.Collection,
		Logger:         logger,
	})
	if err != nil {
		logger.Warn("evidence index unavailable", "provider", o.Provider, "target", o.Target, "error", err)
		return nil
	}

	count, err := driver.Count(ctx)
	if err != nil {
		logger.Warn("evidence index unavailable", "provider", o.Provider, "target", o.Target, "error", err)
		driver.Close()
		return nil
	}

	logger.Info("evidence index loaded", "provider", o.Provider, "target", o.Target, "documents", count)
	return NewIndex(driver, o.Embedder, Manifest{Documents: count})
}
