package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovaplus/innova/internal/db"
)

// axisEmbedder maps each text onto a unit vector chosen by its first word.
type axisEmbedder struct {
	axes map[string]int
	err  error
}

func (a axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if a.err != nil {
		return nil, a.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, db.DefaultEmbeddingDimension)
		for word, axis := range a.axes {
			if len(text) >= len(word) && text[:len(word)] == word {
				v[axis] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestRecaller_WordOverlapFallback(t *testing.T) {
	database, store := setupTestDB(t)
	r := NewRecaller(store, NewVectorIndex(database), nil, nil)
	ctx := context.Background()

	salesID := store.RecordContent(KindChart, "gráfico de ventas mensuales", okResult, nil)
	codeID := store.RecordContent(KindCode, "función python para ordenar listas", okResult, nil)
	r.Index(ctx, salesID, KindChart, "gráfico de ventas mensuales")
	r.Index(ctx, codeID, KindCode, "función python para ordenar listas")

	got, err := r.Recall(ctx, "ventas mensuales de marzo", RecallOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, salesID, got[0].ID)
	assert.Greater(t, got[0].Similarity, 0.0)
}

func TestRecaller_EmbedderErrorDegrades(t *testing.T) {
	database, store := setupTestDB(t)
	r := NewRecaller(store, NewVectorIndex(database), axisEmbedder{err: errors.New("offline")}, nil)
	ctx := context.Background()

	id := store.RecordContent(KindDocument, "informe trimestral finanzas", okResult, nil)
	r.Index(ctx, id, KindDocument, "informe trimestral finanzas")

	got, err := r.Recall(ctx, "informe trimestral", RecallOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestRecaller_SkipsEntriesMissingFromStore(t *testing.T) {
	database, store := setupTestDB(t)
	r := NewRecaller(store, NewVectorIndex(database), nil, nil)
	ctx := context.Background()

	id := store.RecordContent(KindCode, "python sorting helper", okResult, nil)
	r.Index(ctx, id, KindCode, "python sorting helper")
	store.Clear()

	got, err := r.Recall(ctx, "python sorting", RecallOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)

	r.Reset()
	texts, _ := NewVectorIndex(database).IndexedText()
	assert.Empty(t, texts)
}

func TestRecaller_VectorSearch(t *testing.T) {
	database, store := setupTestDB(t)
	if !database.VectorsAvailable() {
		t.Skip("sqlite-vec not available")
	}
	emb := axisEmbedder{axes: map[string]int{"beach": 0, "python": 1}}
	r := NewRecaller(store, NewVectorIndex(database), emb, nil)
	ctx := context.Background()

	beach := store.RecordContent(KindVRScene, "beach scene at sunset", okResult, nil)
	code := store.RecordContent(KindCode, "python quicksort", okResult, nil)
	r.Index(ctx, beach, KindVRScene, "beach scene at sunset")
	r.Index(ctx, code, KindCode, "python quicksort")

	got, err := r.Recall(ctx, "beach with palms", RecallOptions{TopK: 1, SimilarityThreshold: 0.9})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, beach, got[0].ID)
}
