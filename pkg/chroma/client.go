package chroma

import (
	"context"
	"fmt"
	"log"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"mailagent/internal/agent/domain"
	"mailagent/pkg/config"
)

// Index is the Chroma Cloud backed similarity index. Embeddings are computed
// by the agent's embedder and handed over precomputed, so the index is purely
// a nearest-neighbor store. The collection is created with cosine space; the
// metric cannot change without rebuilding the collection.
type Index struct {
	client     chroma.Client
	collection chroma.Collection
	config     *config.Config
}

func NewIndex(cfg *config.Config) (*Index, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	var client chroma.Client
	var err error
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(
		ctx,
		"email_embeddings",
		chroma.WithCollectionMetadataCreate(
			chroma.NewMetadata(chroma.NewStringAttribute("hnsw:space", "cosine")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized client with collection: email_embeddings")

	return &Index{
		client:     client,
		collection: collection,
		config:     cfg,
	}, nil
}

// Insert adds an entry to the collection. Fails with domain.ErrDuplicateKey
// when the id is already indexed. The check-then-add pair is safe because all
// index writes are serialized by the duplicate detector.
func (c *Index) Insert(ctx context.Context, entry domain.IndexEntry) error {
	existing, err := c.collection.Get(ctx, chroma.WithIDsGet(chroma.DocumentID(entry.ID)))
	if err != nil {
		return fmt.Errorf("failed to check existing id: %w", err)
	}
	if existing != nil && len(existing.GetIDs()) > 0 {
		return domain.ErrDuplicateKey
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"subject_hash": entry.SubjectHash,
		"timestamp":    entry.Timestamp.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Add(
		ctx,
		chroma.WithIDs(chroma.DocumentID(entry.ID)),
		chroma.WithMetadatas(metadata),
		chroma.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(entry.Vector)),
	)
	if err != nil {
		return fmt.Errorf("failed to add embedding: %w", err)
	}

	return nil
}

// Query returns up to k nearest neighbors within maxDistance, ordered by
// ascending cosine distance. An empty collection yields an empty result.
func (c *Index) Query(ctx context.Context, vector []float32, k int, maxDistance float64) ([]domain.IndexMatch, error) {
	if k <= 0 {
		return []domain.IndexMatch{}, nil
	}

	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []domain.IndexMatch{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []domain.IndexMatch{}, nil
	}

	matches := make([]domain.IndexMatch, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		match := domain.IndexMatch{ID: string(id)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			match.Distance = float64(distanceGroups[0][i])
		}
		if match.Distance > maxDistance {
			continue
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// Count returns the number of indexed emails
func (c *Index) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection: %w", err)
	}
	return count, nil
}

// Entries enumerates indexed ids and metadata for the stats API. Vectors are
// not fetched; they are of no use to reporting.
func (c *Index) Entries(ctx context.Context) ([]domain.IndexEntry, error) {
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate collection: %w", err)
	}

	ids := results.GetIDs()
	entries := make([]domain.IndexEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, domain.IndexEntry{ID: string(id)})
	}
	return entries, nil
}
