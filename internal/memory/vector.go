package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/innovaplus/innova/internal/db"
)

// VectorIndex stores embeddings of content prompts for similarity search via sqlite-vec.
type VectorIndex struct {
	conn    *sqlx.DB
	enabled bool
}

// NewVectorIndex creates a VectorIndex backed by the given DB.
func NewVectorIndex(database *db.DB) *VectorIndex {
	return &VectorIndex{conn: database.X(), enabled: database.VectorsAvailable()}
}

// Enabled reports whether the vec0 table is usable.
func (v *VectorIndex) Enabled() bool {
	return v.enabled
}

// Upsert stores the text and embedding for a content entry.
func (v *VectorIndex) Upsert(id string, kind ContentKind, text string, embedding []float32) error {
	if _, err := v.conn.Exec(
		`INSERT INTO content_index (id, kind, text) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, text = excluded.text`,
		id, string(kind), text,
	); err != nil {
		return fmt.Errorf("vector: upsert content text: %w", err)
	}
	if !v.enabled || len(embedding) == 0 {
		return nil
	}
	// vec0 has no upsert; replace explicitly.
	if _, err := v.conn.Exec(`DELETE FROM vec_content WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vector: replace embedding: %w", err)
	}
	if _, err := v.conn.Exec(
		`INSERT INTO vec_content (id, embedding) VALUES (?, ?)`,
		id, float32SliceToBlob(embedding),
	); err != nil {
		return fmt.Errorf("vector: insert embedding: %w", err)
	}
	return nil
}

// VectorMatch represents a single similarity search result.
type VectorMatch struct {
	ID         string  `db:"id"`
	Distance   float64 `db:"distance"`
	Similarity float64 `db:"-"`
}

// Search finds the top-k entries most similar to the query vector.
func (v *VectorIndex) Search(query []float32, topK int, minSimilarity float64) ([]VectorMatch, error) {
	if !v.enabled || len(query) == 0 || topK <= 0 {
		return nil, nil
	}
	var rows []VectorMatch
	err := v.conn.Select(&rows,
		`SELECT id, distance FROM vec_content WHERE embedding MATCH ? AND k = ?
		 ORDER BY distance`,
		float32SliceToBlob(query), topK,
	)
	if err != nil {
		// Dimension mismatch after a provider switch lands here; degrade to no results.
		return nil, nil //nolint:nilerr
	}
	out := rows[:0]
	for _, m := range rows {
		// sqlite-vec returns L2 distance; map to a 0-1 similarity.
		m.Similarity = 1.0 / (1.0 + m.Distance)
		if m.Similarity >= minSimilarity {
			out = append(out, m)
		}
	}
	return out, nil
}

// IndexedText returns the indexed text by entry id.
func (v *VectorIndex) IndexedText() (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Text string `db:"text"`
	}
	if err := v.conn.Select(&rows, `SELECT id, text FROM content_index`); err != nil {
		return nil, fmt.Errorf("vector: list content text: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Text
	}
	return out, nil
}

// Reset removes every indexed entry.
func (v *VectorIndex) Reset() error {
	if _, err := v.conn.Exec(`DELETE FROM content_index`); err != nil {
		return fmt.Errorf("vector: reset content text: %w", err)
	}
	if v.enabled {
		if _, err := v.conn.Exec(`DELETE FROM vec_content`); err != nil {
			return fmt.Errorf("vector: reset embeddings: %w", err)
		}
	}
	return nil
}

// float32SliceToBlob serialises a float32 slice to a little-endian byte blob.
// This is the format expected by sqlite-vec's BLOB column input.
func float32SliceToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
