package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/papercomputeco/tabletalk/pkg/vector"
	"github.com/papercomputeco/tabletalk/pkg/vector/chroma"
	"github.com/papercomputeco/tabletalk/pkg/vector/qdrant"
	"github.com/papercomputeco/tabletalk/pkg/vector/sqlitevec"
)

const (
	SQLiteVec = "sqlite-vec"
	Chroma    = "chroma"
	Qdrant    = "qdrant"
)

// SupportedProviders returns the vector store names accepted by NewVectorDriver.
func SupportedProviders() []string {
	return []string{SQLiteVec, Chroma, Qdrant}
}

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is a file path for sqlite-vec, an HTTP URL for chroma and a
	// host:port (optionally with a scheme) for qdrant.
	TargetURL string

	APIKey         string
	CollectionName string
	Dimensions     uint

	// Writable opens the store for ingest: schemas and collections are
	// created as needed. Serving opens stay read-only.
	Writable bool

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case SQLiteVec, "":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
			ReadOnly:   !o.Writable,
		}, o.Logger)

	case Chroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.CollectionName,
			Create:         o.Writable,
		}, o.Logger)

	case Qdrant:
		host, port, useTLS, err := splitQdrantTarget(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			UseTLS:         useTLS,
			CollectionName: o.CollectionName,
			Dimensions:     o.Dimensions,
			Create:         o.Writable,
		}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitQdrantTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "", 0, false, fmt.Errorf("qdrant target is required")
	}

	useTLS := false
	hostport := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		useTLS = u.Scheme == "https"
		hostport = u.Host
	}

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// no port given
		return hostport, qdrant.DefaultPort, useTLS, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, useTLS, nil
}
