package memory

import (
	"context"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
)

// Recaller indexes generated content and finds past entries similar to a query.
type Recaller struct {
	store    *Store
	index    *VectorIndex
	embedder adapter.Embedder
	logger   *zap.Logger
}

// NewRecaller creates a Recaller. embedder may be nil, in which case recall
// falls back to word overlap.
func NewRecaller(store *Store, index *VectorIndex, embedder adapter.Embedder, logger *zap.Logger) *Recaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recaller{store: store, index: index, embedder: embedder, logger: logger}
}

// RecallOptions controls how many results to pull back.
type RecallOptions struct {
	TopK                int
	SimilarityThreshold float64
}

// Index stores the entry's prompt and its embedding. Best-effort: failures
// are logged and swallowed.
func (r *Recaller) Index(ctx context.Context, id string, kind ContentKind, prompt string) {
	var embedding []float32
	if r.embedder != nil && r.index.Enabled() {
		vecs, err := r.embedder.Embed(ctx, []string{prompt})
		if err != nil {
			r.logger.Debug("content embedding skipped", zap.String("id", id), zap.Error(err))
		} else if len(vecs) > 0 {
			embedding = vecs[0]
		}
	}
	if err := r.index.Upsert(id, kind, prompt, embedding); err != nil {
		r.logger.Warn("content index failed", zap.String("id", id), zap.Error(err))
	}
}

// Recall embeds the query and returns ranked content entries.
func (r *Recaller) Recall(ctx context.Context, query string, opts RecallOptions) ([]RankedEntry, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	sims := r.vectorSimilarities(ctx, query, opts)
	if len(sims) == 0 {
		// No embeddings available: fall back to word overlap against indexed prompts.
		sims = r.overlapSimilarities(query)
	}

	entries := make([]ContentEntry, 0, len(sims))
	for id := range sims {
		e, ok := r.store.FindEntry(id)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	ranked := RankEntries(entries, sims)
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}
	return ranked, nil
}

func (r *Recaller) vectorSimilarities(ctx context.Context, query string, opts RecallOptions) map[string]float64 {
	if r.embedder == nil || !r.index.Enabled() {
		return nil
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil
	}
	matches, _ := r.index.Search(vecs[0], opts.TopK, opts.SimilarityThreshold)
	out := make(map[string]float64, len(matches))
	for _, m := range matches {
		out[m.ID] = m.Similarity
	}
	return out
}

// overlapSimilarities scores indexed prompts by the share of query words they contain.
func (r *Recaller) overlapSimilarities(query string) map[string]float64 {
	texts, err := r.index.IndexedText()
	if err != nil {
		r.logger.Warn("content index unavailable", zap.Error(err))
		return nil
	}
	qwords := significantWords(query)
	if len(qwords) == 0 {
		return nil
	}
	out := map[string]float64{}
	for id, text := range texts {
		shared := 0
		for w := range significantWords(text) {
			if qwords[w] {
				shared++
			}
		}
		if shared > 0 {
			out[id] = float64(shared) / float64(len(qwords))
		}
	}
	return out
}

// Reset clears the index. Used together with Store.Clear.
func (r *Recaller) Reset() {
	if err := r.index.Reset(); err != nil {
		r.logger.Warn("content index reset failed", zap.Error(err))
	}
}
