package search

import (
	"context"
	"fmt"
	"iter"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/placepinapp/placepin-server/internal/domain"
)

// placeDocument is the indexed shape of a place. Field names are lowercase
// to match the index mapping.
type placeDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Creator     string `json:"creator"`
}

func toDocument(place *domain.Place) placeDocument {
	return placeDocument{
		Title:       place.Title,
		Description: place.Description,
		Address:     place.Address,
		Creator:     place.CreatorID,
	}
}

// Index adds or replaces a place in the search index.
func (s *Index) Index(place *domain.Place) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.index.Index(place.ID, toDocument(place)); err != nil {
		return fmt.Errorf("index place %s: %w", place.ID, err)
	}
	return nil
}

// Remove deletes a place from the search index. Removing an unindexed place
// is not an error.
func (s *Index) Remove(placeID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.index.Delete(placeID); err != nil {
		return fmt.Errorf("remove place %s: %w", placeID, err)
	}
	return nil
}

// Search returns place IDs matching the query, best first. Matches cover
// title, description, and address, with a little fuzziness so near-misses
// still hit.
func (s *Index) Search(ctx context.Context, queryString string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := bleve.NewMatchQuery(queryString)
	match.SetFuzziness(1)

	prefix := bleve.NewPrefixQuery(queryString)

	q := bleve.NewDisjunctionQuery([]query.Query{match, prefix}...)

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Rebuild reindexes every place from the given sequence, typically the
// store's full place listing. Used after a mapping version bump.
func (s *Index) Rebuild(places iter.Seq2[*domain.Place, error]) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	count := 0
	for place, err := range places {
		if err != nil {
			return count, fmt.Errorf("rebuild: %w", err)
		}
		if err := batch.Index(place.ID, toDocument(place)); err != nil {
			return count, fmt.Errorf("rebuild index place %s: %w", place.ID, err)
		}
		count++
	}

	if err := s.index.Batch(batch); err != nil {
		return count, fmt.Errorf("rebuild batch: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("search index rebuilt", "places", count)
	}
	return count, nil
}
