// Package qdrant provides a Qdrant vector database driver implementation.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/tabletalk/pkg/vector"
)

const (
	// DefaultCollectionName is the collection the ingest pipeline writes to.
	DefaultCollectionName = "reviews"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// docIDKey holds the caller's document ID in the point payload. Qdrant
	// point IDs must be integers or UUIDs.
	docIDKey = "_doc_id"
	textKey  = "_text"
)

// Driver implements vector.Driver over Qdrant's gRPC API. Collections use
// Euclidean distance so the reported score is a raw distance, lower closer.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is required when Create is set.
	Dimensions uint

	// Create makes the driver create the collection when it does not exist.
	Create bool
}

// NewDriver connects to Qdrant and checks the collection.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}

	if !exists {
		if !c.Create {
			client.Close()
			return nil, fmt.Errorf("%w: collection %s", vector.ErrNotFound, collectionName)
		}
		if c.Dimensions == 0 {
			client.Close()
			return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
		}
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Euclid,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %s: %w", collectionName, err)
		}
	}

	logger.Info("connected to qdrant",
		"host", c.Host,
		"port", port,
		"collection", collectionName,
	)

	return &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}, nil
}

// pointID maps a document ID onto a stable UUID.
func pointID(docID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String())
}

// Add upserts documents. Text and metadata travel in the payload.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		payload := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload[docIDKey] = doc.ID
		payload[textKey] = doc.Text

		points = append(points, &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))
	return nil
}

// Query returns the topK nearest points by ascending Euclidean distance.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: fromPayload(p.GetPayload()),
			Distance: float64(p.GetScore()),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

// Get retrieves documents, with embeddings, by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collectionName,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func fromPayload(payload map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{Metadata: make(map[string]string, len(payload))}
	for k, v := range payload {
		switch k {
		case docIDKey:
			doc.ID = v.GetStringValue()
		case textKey:
			doc.Text = v.GetStringValue()
		default:
			doc.Metadata[k] = v.GetStringValue()
		}
	}
	return doc
}

var _ vector.Driver = (*Driver)(nil)
