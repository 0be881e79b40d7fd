// Package ingestcmder provides the ingest command, which builds the review
// evidence index from preprocessed CSV files.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/config"
	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/tabletalk/pkg/embeddings/utils"
	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/vector"
	vectorutils "github.com/papercomputeco/tabletalk/pkg/vector/utils"
)

type ingestCommander struct {
	flags config.FlagSet

	csvPaths    []string
	sources     []string
	concurrency int

	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	indexDir       string
	vectorProv     string
	vectorTgt      string
	collection     string

	debug bool

	out      io.Writer
	viper    *viper.Viper
	embedder embeddings.Embedder
	logger   *slog.Logger

	// openStore opens a remote vector store sized for the embedding
	// dimension. Nil builds a local sqlite-vec index under indexDir.
	openStore func(ctx context.Context, dims uint) (vector.Driver, error)
}

var ingestFlags = config.FlagSet{
	config.FlagEmbeddingProv:   config.Flags[config.FlagEmbeddingProv],
	config.FlagEmbeddingTgt:    config.Flags[config.FlagEmbeddingTgt],
	config.FlagEmbeddingModel:  config.Flags[config.FlagEmbeddingModel],
	config.FlagEmbeddingDims:   config.Flags[config.FlagEmbeddingDims],
	config.FlagIndexDir:        config.Flags[config.FlagIndexDir],
	config.FlagVectorStoreProv: config.Flags[config.FlagVectorStoreProv],
	config.FlagVectorStoreTgt:  config.Flags[config.FlagVectorStoreTgt],
	config.FlagCollection:      config.Flags[config.FlagCollection],
}

const ingestLongDesc string = `Build the review evidence index from preprocessed CSV files.

Each CSV needs a "review" column. The rating is read from the first of "star",
"score" or "rating" that is present, and "date" is optional. Rows with a blank
review are skipped.

Every review is embedded and written to a sqlite-vec index under --index-dir.
The new index is built beside the old one and swapped in only once it is
complete, so a running "tabletalk serve" keeps answering from the previous
index and picks up the new one when the swap lands.

With --vector-store-provider chroma or qdrant the reviews are upserted into
the remote collection instead, creating it when it does not exist yet.

Sources name where the reviews came from and prefix every review id. Pass one
--source per --csv, in the same order, or none to use the file names.

Examples:
  tabletalk ingest --csv kakao.csv --source kakaomap
  tabletalk ingest --csv kakao.csv --csv naver.csv --source kakaomap --source naver
  tabletalk ingest --csv reviews.csv --index-dir ./index --embedding-provider ollama
  tabletalk ingest --csv reviews.csv --vector-store-provider qdrant --vector-store-target localhost:6334`

const ingestShortDesc string = "Build the review evidence index"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{
		flags: ingestFlags,
	}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagIndexDir,
				config.FlagVectorStoreProv,
				config.FlagVectorStoreTgt,
				config.FlagCollection,
			})

			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.out = cmd.OutOrStdout()
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
			)

			v := cmder.viper
			cmder.indexDir = v.GetString("vector_store.index_dir")
			cmder.embeddingProv = v.GetString("embedding.provider")
			cmder.embeddingModel = v.GetString("embedding.model")

			cmder.embedder, err = embeddingutils.NewEmbedder(cmd.Context(), &embeddingutils.NewEmbedderOpts{
				ProviderType: cmder.embeddingProv,
				TargetURL:    v.GetString("embedding.target"),
				APIKey:       v.GetString("embedding.api_key"),
				Model:        cmder.embeddingModel,
				Dimensions:   v.GetInt("embedding.dimensions"),
			})
			if err != nil {
				return fmt.Errorf("creating embedder: %w", err)
			}

			cmder.vectorProv = v.GetString("vector_store.provider")
			if cmder.vectorProv != "" && cmder.vectorProv != vectorutils.SQLiteVec {
				cmder.openStore = remoteStoreOpener(&vectorutils.NewVectorDriverOpts{
					ProviderType:   cmder.vectorProv,
					TargetURL:      v.GetString("vector_store.target"),
					APIKey:         config.APIKey(v, "vector_store.api_key", "QDRANT_API_KEY", "CHROMA_API_KEY"),
					CollectionName: v.GetString("vector_store.collection"),
					Writable:       true,
					Logger:         cmder.logger,
				})
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringArrayVar(&cmder.csvPaths, "csv", nil, "Review CSV file (repeatable)")
	cmd.Flags().StringArrayVar(&cmder.sources, "source", nil, "Source name for the matching --csv (repeatable)")
	cmd.Flags().IntVar(&cmder.concurrency, "concurrency", evidence.DefaultConcurrency, "Concurrent embedding requests")
	_ = cmd.MarkFlagRequired("csv")

	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagIndexDir, &cmder.indexDir)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, cmder.flags, config.FlagCollection, &cmder.collection)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sources, err := resolveSources(c.csvPaths, c.sources)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)

	var docs []vector.Document
	for i, path := range c.csvPaths {
		var read []vector.Document
		err := cliui.Step(c.out, fmt.Sprintf("Reading %s", filepath.Base(path)), func() error {
			var err error
			read, err = readCSV(path, sources[i])
			return err
		})
		if err != nil {
			return err
		}
		c.logger.Debug("read reviews", "path", path, "source", sources[i], "documents", len(read))
		docs = append(docs, read...)
	}

	var manifest evidence.Manifest
	err = cliui.Step(c.out, fmt.Sprintf("Embedding %d reviews", len(docs)), func() error {
		var err error
		manifest, err = evidence.Build(ctx, evidence.BuildOpts{
			Dir:               c.indexDir,
			Open:              c.openStore,
			Documents:         docs,
			Embedder:          c.embedder,
			EmbeddingProvider: c.embeddingProv,
			EmbeddingModel:    c.embeddingModel,
			Sources:           sources,
			Concurrency:       c.concurrency,
			Logger:            c.logger,
		})
		return err
	})
	if err != nil {
		return err
	}

	target := c.indexDir
	if c.openStore != nil {
		target = c.vectorProv
	}
	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.KeyStyle.Render("Index:"), cliui.ValueStyle.Render(target))
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Documents:"), cliui.ValueStyle.Render(fmt.Sprintf("%d", manifest.Documents)))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Dimensions:"), cliui.ValueStyle.Render(fmt.Sprintf("%d", manifest.Dimensions)))

	return nil
}

// resolveSources pairs every CSV with a source name. Without explicit
// sources the file name minus its extension is used.
func resolveSources(paths, sources []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one --csv is required")
	}

	if len(sources) == 0 {
		sources = make([]string, len(paths))
		for i, p := range paths {
			base := filepath.Base(p)
			sources[i] = strings.TrimSuffix(base, filepath.Ext(base))
		}
	} else if len(sources) != len(paths) {
		return nil, fmt.Errorf("got %d --source values for %d --csv files", len(sources), len(paths))
	}

	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if strings.TrimSpace(s) == "" {
			return nil, errors.New("--source cannot be blank")
		}
		if seen[s] {
			return nil, fmt.Errorf("duplicate source %q: review ids would collide, pass --source for each --csv", s)
		}
		seen[s] = true
	}
	return sources, nil
}

// remoteStoreOpener opens a writable remote collection once the embedding
// dimension is known.
func remoteStoreOpener(o *vectorutils.NewVectorDriverOpts) func(context.Context, uint) (vector.Driver, error) {
	return func(ctx context.Context, dims uint) (vector.Driver, error) {
		opts := *o
		opts.Dimensions = dims
		return vectorutils.NewVectorDriver(ctx, &opts)
	}
}

func readCSV(path, source string) ([]vector.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	docs, err := evidence.ReadReviews(f, source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return docs, nil
}
