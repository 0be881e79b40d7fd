// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/vector"
)

const (
	// DefaultCollectionName is the collection the ingest pipeline writes to.
	DefaultCollectionName = "reviews"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Create makes the driver create the collection when it does not exist.
	// Serving paths leave this off so a missing index stays missing.
	Create bool
}

// NewDriver connects to Chroma and resolves the collection ID.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		logger:         logger,
	}

	collectionID, err := d.resolveCollection(context.Background(), c.Create)
	if err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (d *Driver) resolveCollection(ctx context.Context, create bool) (string, error) {
	var collection chromaCollection
	status, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}
	if status == 0 {
		return "", err
	}
	if !create {
		return "", fmt.Errorf("%w: collection %s: %w", vector.ErrNotFound, d.collectionName, err)
	}

	if _, err := d.do(ctx, http.MethodPost, collectionsPath, map[string]string{"name": d.collectionName}, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// Add stores documents with their embeddings. Chroma's upsert endpoint is
// used so re-ingesting replaces documents that share an ID.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Documents[i] = doc.Text
		meta := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		req.Metadatas[i] = meta
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))
	return nil
}

// Query finds the topK nearest documents. Distances are returned exactly as
// Chroma reports them.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("query"), req, &resp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]vector.QueryResult, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		r := vector.QueryResult{Document: vector.Document{ID: id}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) && resp.Documents[0][i] != nil {
			r.Text = *resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			r.Metadata = stringMetadata(resp.Metadatas[0][i])
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Distance = resp.Distances[0][i]
		}
		results = append(results, r)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	req := chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	}

	var resp chromaGetResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("get"), req, &resp); err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(resp.IDs))
	for i, id := range resp.IDs {
		docs[i].ID = id
		if i < len(resp.Documents) && resp.Documents[i] != nil {
			docs[i].Text = *resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			docs[i].Metadata = stringMetadata(resp.Metadatas[i])
		}
		if i < len(resp.Embeddings) {
			docs[i].Embedding = resp.Embeddings[i]
		}
	}

	return docs, nil
}

// Count returns the number of documents in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if _, err := d.do(ctx, http.MethodGet, d.collectionPath("count"), nil, &n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

// stringMetadata flattens Chroma metadata values, which may come back as
// numbers or booleans, into strings.
func stringMetadata(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

var _ vector.Driver = (*Driver)(nil)
