// Package servecmder provides the serve command, which runs the turn API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/tabletalk/api"
	"github.com/papercomputeco/tabletalk/pkg/checkpoint"
	"github.com/papercomputeco/tabletalk/pkg/config"
	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/tabletalk/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/tabletalk/pkg/eventstream/utils"
	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/handlers"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/metrics"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
	"github.com/papercomputeco/tabletalk/pkg/router"
	storageutils "github.com/papercomputeco/tabletalk/pkg/storage/utils"
	"github.com/papercomputeco/tabletalk/pkg/subjects"
	"github.com/papercomputeco/tabletalk/pkg/telemetry"
	vectorutils "github.com/papercomputeco/tabletalk/pkg/vector/utils"
	"github.com/papercomputeco/tabletalk/pkg/worker"
)

type serveCommander struct {
	flags config.FlagSet

	listen         string
	llmProvider    string
	llmTarget      string
	llmModel       string
	temperature    float64
	routerModel    string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	vectorProv     string
	vectorTgt      string
	collection     string
	indexDir       string
	subjectsPath   string
	storageDriver  string
	sqlitePath     string
	postgresDSN    string
	redisURL       string
	storageTTL     string
	topK           int
	callTimeout    string
	eventStream    string
	kafkaBrokers   string
	kafkaTopic     string
	otel           bool
	otelEndpoint   string

	debug     bool
	noMCP     bool
	jsonLogs  bool
	configDir string

	viper  *viper.Viper
	logger *slog.Logger
}

var serveFlags = config.FlagSet{
	config.FlagListen:          config.Flags[config.FlagListen],
	config.FlagLLMProvider:     config.Flags[config.FlagLLMProvider],
	config.FlagLLMTarget:       config.Flags[config.FlagLLMTarget],
	config.FlagLLMModel:        config.Flags[config.FlagLLMModel],
	config.FlagTemperature:     config.Flags[config.FlagTemperature],
	config.FlagRouterModel:     config.Flags[config.FlagRouterModel],
	config.FlagEmbeddingProv:   config.Flags[config.FlagEmbeddingProv],
	config.FlagEmbeddingTgt:    config.Flags[config.FlagEmbeddingTgt],
	config.FlagEmbeddingModel:  config.Flags[config.FlagEmbeddingModel],
	config.FlagEmbeddingDims:   config.Flags[config.FlagEmbeddingDims],
	config.FlagVectorStoreProv: config.Flags[config.FlagVectorStoreProv],
	config.FlagVectorStoreTgt:  config.Flags[config.FlagVectorStoreTgt],
	config.FlagCollection:      config.Flags[config.FlagCollection],
	config.FlagIndexDir:        config.Flags[config.FlagIndexDir],
	config.FlagSubjects:        config.Flags[config.FlagSubjects],
	config.FlagStorageDriver:   config.Flags[config.FlagStorageDriver],
	config.FlagSQLite:          config.Flags[config.FlagSQLite],
	config.FlagPostgresDSN:     config.Flags[config.FlagPostgresDSN],
	config.FlagRedisURL:        config.Flags[config.FlagRedisURL],
	config.FlagStorageTTL:      config.Flags[config.FlagStorageTTL],
	config.FlagTopK:            config.Flags[config.FlagTopK],
	config.FlagCallTimeout:     config.Flags[config.FlagCallTimeout],
	config.FlagEventStream:     config.Flags[config.FlagEventStream],
	config.FlagKafkaBrokers:    config.Flags[config.FlagKafkaBrokers],
	config.FlagKafkaTopic:      config.Flags[config.FlagKafkaTopic],
	config.FlagTelemetry:       config.Flags[config.FlagTelemetry],
	config.FlagTelemetryTgt:    config.Flags[config.FlagTelemetryTgt],
}

const serveLongDesc string = `Run the tabletalk turn API.

The server answers restaurant questions over HTTP and MCP. Each turn is
classified, answered by the chat, subject info or review handler, and
checkpointed against its thread id.

Review answers are grounded in the evidence index built by "tabletalk ingest".
When the index is missing the server still starts and review questions get a
fixed "no reviews" answer. A local sqlite-vec index is watched and reloaded
whenever ingest swaps it.

Every flag can also be set in config.toml or with a TABLETALK_ environment
variable, e.g. TABLETALK_LLM_MODEL.`

const serveShortDesc string = "Run the tabletalk turn API"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{
		flags: serveFlags,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagListen,
				config.FlagLLMProvider,
				config.FlagLLMTarget,
				config.FlagLLMModel,
				config.FlagTemperature,
				config.FlagRouterModel,
				config.FlagEmbeddingProv,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingModel,
				config.FlagEmbeddingDims,
				config.FlagVectorStoreProv,
				config.FlagVectorStoreTgt,
				config.FlagCollection,
				config.FlagIndexDir,
				config.FlagSubjects,
				config.FlagStorageDriver,
				config.FlagSQLite,
				config.FlagPostgresDSN,
				config.FlagRedisURL,
				config.FlagStorageTTL,
				config.FlagTopK,
				config.FlagCallTimeout,
				config.FlagEventStream,
				config.FlagKafkaBrokers,
				config.FlagKafkaTopic,
				config.FlagTelemetry,
				config.FlagTelemetryTgt,
			})

			cmder.viper = v
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddFloatFlag(cmd, cmder.flags, config.FlagTemperature, &cmder.temperature)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRouterModel, &cmder.routerModel)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, cmder.flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, cmder.flags, config.FlagIndexDir, &cmder.indexDir)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSubjects, &cmder.subjectsPath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagRedisURL, &cmder.redisURL)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageTTL, &cmder.storageTTL)
	config.AddIntFlag(cmd, cmder.flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, cmder.flags, config.FlagCallTimeout, &cmder.callTimeout)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagTelemetry, &cmder.otel)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTelemetryTgt, &cmder.otelEndpoint)

	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write JSON log records instead of pretty text")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(!c.jsonLogs),
		logger.WithJSON(c.jsonLogs),
	)

	v := c.viper
	callTimeout := v.GetDuration("orchestrator.call_timeout")
	telemetryEnabled := v.GetBool("telemetry.enabled")

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:  telemetryEnabled,
		Endpoint: v.GetString("telemetry.endpoint"),
		Insecure: true,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			c.logger.Warn("flushing traces", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	generator, routerGenerator, err := c.newGenerators(ctx)
	if err != nil {
		return err
	}

	holder := c.newEvidenceHolder(ctx, m)
	defer holder.Close()

	lookup := subjects.Load(v.GetString("subjects.path"), c.logger)

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      v.GetString("storage.driver"),
		SQLitePath:  v.GetString("storage.sqlite_path"),
		PostgresDSN: v.GetString("storage.postgres_dsn"),
		RedisURL:    v.GetString("storage.redis_url"),
		TTL:         v.GetDuration("storage.ttl"),
	})
	if err != nil {
		return fmt.Errorf("creating checkpoint storage: %w", err)
	}
	defer driver.Close()
	checkpoints := checkpoint.NewStore(driver, c.logger)

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: v.GetString("eventstream.provider"),
		Brokers:      v.GetString("eventstream.brokers"),
		Topic:        v.GetString("eventstream.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Metrics:   m,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	temperature := v.GetFloat64("llm.temperature")
	orch, err := orchestrator.New(orchestrator.Options{
		Router: router.New(router.Options{
			Generator:     routerGenerator,
			Timeout:       callTimeout,
			HistoryWindow: v.GetInt("router.history_window"),
			Aliases:       lookup,
			OnParse: func(cls router.Classification) {
				m.RouterParsed(string(cls.Tier))
			},
			Logger: c.logger,
		}),
		Chat: &handlers.Chat{
			Generator:   generator,
			Temperature: temperature,
			Timeout:     callTimeout,
		},
		SubjectInfo: &handlers.SubjectInfo{
			Generator:   generator,
			Subjects:    lookup,
			Temperature: temperature,
			Timeout:     callTimeout,
		},
		RAGReview: &handlers.RAGReview{
			Generator:   generator,
			Index:       holder,
			TopK:        v.GetInt("orchestrator.top_k"),
			Temperature: temperature,
			Timeout:     callTimeout,
			OnRetrieve:  m.RetrievalHits,
		},
		Candidates:  lookup,
		Checkpoints: checkpoints,
		Events:      pool,
		Metrics:     m,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	listen := v.GetString("api.listen")
	server, err := api.NewServer(api.Config{
		ListenAddr:  listen,
		Turns:       orch,
		Index:       holder,
		Checkpoints: checkpoints,
		Subjects:    lookup,
		Gatherer:    reg,
		Tracing:     telemetryEnabled,
		DisableMCP:  c.noMCP,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	c.logger.Info("starting tabletalk",
		"listen", listen,
		"llm_provider", v.GetString("llm.provider"),
		"llm_model", v.GetString("llm.model"),
		"storage", v.GetString("storage.driver"),
		"index_available", holder.Available(),
		"subjects", lookup.Len(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Warn("stopping api server", "error", err)
	}
	return nil
}

// newGenerators returns the answer generator and the classification
// generator. They are the same client unless a router model is configured.
func (c *serveCommander) newGenerators(ctx context.Context) (llm.Generator, llm.Generator, error) {
	v := c.viper
	opts := &provider.NewGeneratorOpts{
		ProviderType: v.GetString("llm.provider"),
		TargetURL:    v.GetString("llm.target"),
		APIKey:       v.GetString("llm.api_key"),
		Model:        v.GetString("llm.model"),
	}

	generator, err := provider.NewGenerator(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating llm generator: %w", err)
	}

	routerModel := v.GetString("router.model")
	if routerModel == "" || routerModel == opts.Model {
		return generator, generator, nil
	}

	routerOpts := *opts
	routerOpts.Model = routerModel
	routerGenerator, err := provider.NewGenerator(ctx, &routerOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating router generator: %w", err)
	}
	return generator, routerGenerator, nil
}

// newEvidenceHolder loads the evidence index. An embedder or index failure
// leaves the holder empty rather than failing startup.
func (c *serveCommander) newEvidenceHolder(ctx context.Context, m *metrics.Metrics) *evidence.Holder {
	v := c.viper

	var embedder embeddings.Embedder
	e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		APIKey:       v.GetString("embedding.api_key"),
		Model:        v.GetString("embedding.model"),
		Dimensions:   v.GetInt("embedding.dimensions"),
	})
	if err != nil {
		c.logger.Warn("embedder unavailable, review answers disabled", "error", err)
	} else {
		embedder = e
	}

	vectorProvider := v.GetString("vector_store.provider")
	indexDir := v.GetString("vector_store.index_dir")

	loader := func(ctx context.Context) *evidence.Index {
		idx := evidence.Load(ctx, evidence.LoadOpts{
			Provider:   vectorProvider,
			Dir:        indexDir,
			Target:     v.GetString("vector_store.target"),
			APIKey:     config.APIKey(v, "vector_store.api_key", "QDRANT_API_KEY", "CHROMA_API_KEY"),
			Collection: v.GetString("vector_store.collection"),
			Embedder:   embedder,
			Logger:     c.logger,
		})
		if idx != nil {
			m.SetIndexAvailable(true)
		}
		return idx
	}

	holder := evidence.NewHolder(ctx, loader, c.logger)
	m.SetIndexAvailable(holder.Available())

	if embedder != nil && indexDir != "" && (vectorProvider == "" || vectorProvider == vectorutils.SQLiteVec) {
		go func() {
			if err := holder.Watch(ctx, indexDir); err != nil {
				c.logger.Warn("evidence index watcher stopped", "error", err)
			}
		}()
	}

	return holder
}
