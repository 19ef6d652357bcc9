package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voltcat/internal/core"
	"voltcat/internal/embedding"
	"voltcat/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store owns the taxonomy and the knowledge base for the process lifetime.
// Single-writer, single-reader within one run; each append rewrites the
// whole backing file through a temp file plus rename so a crash mid-write
// cannot leave a truncated document.
type Store struct {
	basePath string
	taxonomy *Taxonomy
	examples []Example

	// Optional semantic retrieval. When nil, retrieval stays on the
	// deterministic token-overlap path.
	engine  embedding.Engine
	vectors map[string][]float32 // description -> cached embedding
}

// Option configures a Store.
type Option func(*Store)

// WithEmbeddingEngine enables semantic rescoring of retrieval candidates.
func WithEmbeddingEngine(engine embedding.Engine) Option {
	return func(s *Store) {
		s.engine = engine
	}
}

// Open loads the taxonomy and the knowledge base. A missing knowledge base
// file means a valid first run (empty base); a missing or malformed
// taxonomy is a DataFormatError.
func Open(taxonomyPath, basePath string, opts ...Option) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	s := &Store{
		basePath: basePath,
		vectors:  make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(s)
	}

	var g errgroup.Group
	g.Go(func() error {
		t, err := LoadTaxonomy(taxonomyPath)
		if err != nil {
			return err
		}
		s.taxonomy = t
		return nil
	})
	g.Go(func() error {
		examples, err := loadExamples(basePath)
		if err != nil {
			return err
		}
		s.examples = examples
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Store("Store opened: %d categories, %d examples", s.taxonomy.Len(), len(s.examples))
	return s, nil
}

// loadExamples reads the knowledge base document from disk.
func loadExamples(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.StoreDebug("No knowledge base at %s, starting empty", path)
			return nil, nil
		}
		return nil, &core.DataFormatError{
			Path:   path,
			Reason: "knowledge base unreadable",
			Err:    err,
		}
	}

	var doc knowledgeBaseFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &core.DataFormatError{
			Path:   path,
			Reason: "knowledge base is not a valid inventory document",
			Err:    err,
		}
	}

	return doc.Records, nil
}

// Taxonomy returns the loaded taxonomy.
func (s *Store) Taxonomy() *Taxonomy {
	return s.taxonomy
}

// Examples returns a copy of the ordered knowledge base records.
func (s *Store) Examples() []Example {
	out := make([]Example, len(s.examples))
	copy(out, s.examples)
	return out
}

// Len returns the number of stored examples.
func (s *Store) Len() int {
	return len(s.examples)
}

// FindSimilar returns up to k examples ranked by token overlap with the
// description, most relevant first. Zero-overlap examples are excluded.
// Ties keep insertion order (earlier examples preferred), so the result is
// deterministic for identical input and store state.
func (s *Store) FindSimilar(description string, k int) []Example {
	if k <= 0 || len(s.examples) == 0 {
		return nil
	}

	query := tokenSet(description)

	type scored struct {
		index int
		score float64
	}
	candidates := make([]scored, 0, len(s.examples))
	for i, ex := range s.examples {
		score := overlapScore(query, tokenSet(ex.Description))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{index: i, score: score})
	}

	// Stable sort keeps insertion order within equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Example, len(candidates))
	for i, c := range candidates {
		results[i] = s.examples[c.index]
	}

	logging.StoreDebug("FindSimilar: %d/%d candidates for %q", len(results), len(s.examples), core.Truncate(description, 60))
	return results
}

// Retrieve returns up to k examples for few-shot context. With an embedding
// engine configured it ranks by cosine similarity, falling back to the
// token-overlap heuristic when embedding fails; without one it is exactly
// FindSimilar.
func (s *Store) Retrieve(ctx context.Context, description string, k int) []Example {
	if s.engine == nil {
		return s.FindSimilar(description, k)
	}

	results, err := s.findSimilarSemantic(ctx, description, k)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Semantic retrieval failed: %v, falling back to token overlap", err)
		return s.FindSimilar(description, k)
	}
	return results
}

// findSimilarSemantic ranks all stored examples by cosine similarity of
// their description embeddings against the query embedding.
func (s *Store) findSimilarSemantic(ctx context.Context, description string, k int) ([]Example, error) {
	if k <= 0 || len(s.examples) == 0 {
		return nil, nil
	}

	queryVec, err := s.engine.Embed(ctx, description)
	if err != nil {
		return nil, err
	}

	if err := s.hydrateVectors(ctx); err != nil {
		return nil, err
	}

	type scored struct {
		index int
		score float64
	}
	candidates := make([]scored, 0, len(s.examples))
	for i, ex := range s.examples {
		vec, ok := s.vectors[ex.Description]
		if !ok {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{index: i, score: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Example, len(candidates))
	for i, c := range candidates {
		results[i] = s.examples[c.index]
	}
	return results, nil
}

// hydrateVectors embeds descriptions that have no cached vector yet.
func (s *Store) hydrateVectors(ctx context.Context) error {
	var missing []string
	for _, ex := range s.examples {
		if _, ok := s.vectors[ex.Description]; !ok {
			missing = append(missing, ex.Description)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	vecs, err := s.engine.EmbedBatch(ctx, missing)
	if err != nil {
		return err
	}
	for i, text := range missing {
		if i < len(vecs) && len(vecs[i]) > 0 {
			s.vectors[text] = vecs[i]
		}
	}
	logging.EmbeddingDebug("Hydrated %d example vectors", len(missing))
	return nil
}

// FindByCategory returns up to k examples of one category in insertion
// order. This feeds the standardization few-shot context.
func (s *Store) FindByCategory(category string, k int) []Example {
	if k <= 0 {
		return nil
	}
	results := make([]Example, 0, k)
	for _, ex := range s.examples {
		if ex.Category != category {
			continue
		}
		results = append(results, ex)
		if len(results) == k {
			break
		}
	}
	return results
}

// Append validates the example against the taxonomy, assigns its identity,
// and persists the whole knowledge base. Returns the stored record.
func (s *Store) Append(ex Example) (Example, error) {
	if !s.taxonomy.Contains(ex.Category) {
		return Example{}, &core.ValidationError{
			Stage:  core.StagePersist,
			Field:  "category",
			Value:  ex.Category,
			Reason: "is not in the loaded taxonomy",
		}
	}

	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	s.examples = append(s.examples, ex)
	if err := s.save(); err != nil {
		// Roll back the in-memory append so state matches disk
		s.examples = s.examples[:len(s.examples)-1]
		return Example{}, err
	}

	logging.Store("Appended example %s (category=%s)", ex.ID, ex.Category)
	return ex, nil
}

// save rewrites the knowledge base document atomically: marshal to a temp
// file in the same directory, then rename over the previous file.
func (s *Store) save() error {
	doc := knowledgeBaseFile{
		Version:     knowledgeBaseVersion,
		GeneratedAt: time.Now().UTC(),
		Records:     s.examples,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &core.DataFormatError{
			Path:   s.basePath,
			Reason: "failed to encode knowledge base",
			Err:    err,
		}
	}

	dir := filepath.Dir(s.basePath)
	tmp, err := os.CreateTemp(dir, ".inventory-*.tmp")
	if err != nil {
		return &core.DataFormatError{
			Path:   s.basePath,
			Reason: "failed to create temp file",
			Err:    err,
		}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &core.DataFormatError{
			Path:   s.basePath,
			Reason: "failed to write knowledge base",
			Err:    err,
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &core.DataFormatError{
			Path:   s.basePath,
			Reason: "failed to flush knowledge base",
			Err:    err,
		}
	}

	if err := os.Rename(tmpPath, s.basePath); err != nil {
		os.Remove(tmpPath)
		return &core.DataFormatError{
			Path:   s.basePath,
			Reason: "failed to replace knowledge base",
			Err:    err,
		}
	}

	return nil
}
