package memory

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFloat32SliceToBlob(t *testing.T) {
	input := []float32{1.0, 2.0, 3.0}
	blob := float32SliceToBlob(input)

	if len(blob) != 12 { // 3 floats * 4 bytes each
		t.Fatalf("expected 12 bytes, got %d", len(blob))
	}

	for i, want := range input {
		got := math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
		if got != want {
			t.Errorf("index %d: got %f, want %f", i, got, want)
		}
	}
}

func TestFloat32SliceToBlob_Empty(t *testing.T) {
	blob := float32SliceToBlob(nil)
	if len(blob) != 0 {
		t.Errorf("expected empty blob for nil input, got %d bytes", len(blob))
	}
}

func TestVectorIndex_UpsertAndIndexedText(t *testing.T) {
	database, _ := setupTestDB(t)
	idx := NewVectorIndex(database)

	if err := idx.Upsert("e1", KindCode, "python sort function", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert("e1", KindCode, "python merge sort", nil); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	texts, err := idx.IndexedText()
	if err != nil {
		t.Fatalf("IndexedText: %v", err)
	}
	if texts["e1"] != "python merge sort" {
		t.Errorf("text = %q", texts["e1"])
	}

	if err := idx.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	texts, _ = idx.IndexedText()
	if len(texts) != 0 {
		t.Errorf("expected empty index after Reset, got %d", len(texts))
	}
}

func TestVectorIndex_SearchEmptyQuery(t *testing.T) {
	database, _ := setupTestDB(t)
	idx := NewVectorIndex(database)

	matches, err := idx.Search(nil, 5, 0)
	if err != nil || matches != nil {
		t.Errorf("expected nil matches for empty query, got %v err=%v", matches, err)
	}
}
