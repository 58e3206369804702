package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovaplus/innova/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, *Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, NewStore(database.KV(), nil)
}

// memPersistence is an in-memory Persistence with injectable failures.
type memPersistence struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setCall int
}

func newMemPersistence() *memPersistence {
	return &memPersistence{data: map[string][]byte{}}
}

func (m *memPersistence) Get(key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memPersistence) Set(key string, value []byte) error {
	m.setCall++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

var okResult = json.RawMessage(`{"content":"ok"}`)

func TestStore_RecordUsage_SuccessUpdatesPreferences(t *testing.T) {
	_, store := setupTestDB(t)

	store.RecordUsage(CapCode, "write a sorting function", okResult, nil)

	snap := store.Snapshot()
	require.Len(t, snap.FunctionUsage, 1)
	rec := snap.FunctionUsage[0]
	assert.True(t, rec.Succeeded)
	assert.Equal(t, "code", rec.ResultKind)
	assert.Equal(t, 1, snap.PreferenceCounts[CapCode])
	assert.Equal(t, "write a sorting function", snap.LastContent[CapCode].Query)
}

func TestStore_RecordUsage_FailureLeavesPreferences(t *testing.T) {
	_, store := setupTestDB(t)

	store.RecordUsage(CapImage, "a cat", nil, map[string]any{"error": "timeout"})
	store.RecordUsage(CapImage, "a cat", json.RawMessage("null"), nil)

	snap := store.Snapshot()
	require.Len(t, snap.FunctionUsage, 2)
	assert.False(t, snap.FunctionUsage[0].Succeeded)
	assert.Equal(t, "unknown", snap.FunctionUsage[0].ResultKind)
	assert.Zero(t, snap.PreferenceCounts[CapImage])
	_, ok := snap.LastContent[CapImage]
	assert.False(t, ok)
}

func TestStore_RecordUsage_QueryExcerptTruncated(t *testing.T) {
	_, store := setupTestDB(t)

	long := strings.Repeat("ñ", 150)
	store.RecordUsage(CapResearch, long, okResult, nil)

	snap := store.Snapshot()
	assert.Equal(t, QueryExcerptLimit, len([]rune(snap.FunctionUsage[0].QueryExcerpt)))
	assert.Equal(t, long, snap.LastContent[CapResearch].Query)
}

func TestStore_UsageHistoryCap(t *testing.T) {
	_, store := setupTestDB(t)

	for i := 0; i < 60; i++ {
		store.RecordUsage(CapAnalysis, fmt.Sprintf("query %d", i), okResult, nil)
	}

	snap := store.Snapshot()
	require.Len(t, snap.FunctionUsage, UsageHistoryCap)
	for i, rec := range snap.FunctionUsage {
		assert.Equal(t, fmt.Sprintf("query %d", i+10), rec.QueryExcerpt, "most recent 50 in order")
	}
	assert.Equal(t, 60, snap.PreferenceCounts[CapAnalysis], "counts are not capped")
}

func TestStore_RecordContent_UniqueIDs(t *testing.T) {
	_, store := setupTestDB(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := store.RecordContent(KindCode, "p", okResult, nil)
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestStore_FindEntry(t *testing.T) {
	_, store := setupTestDB(t)

	id := store.RecordContent(KindChart, "ventas mensuales", json.RawMessage(`{"title":"Ventas"}`), map[string]any{MetaPrimaryIntent: "visual"})

	e, ok := store.FindEntry(id)
	require.True(t, ok)
	assert.Equal(t, KindChart, e.Kind)
	assert.Equal(t, "ventas mensuales", e.OriginalPrompt)
	assert.JSONEq(t, `{"title":"Ventas"}`, string(e.Result))
	assert.Empty(t, e.ModificationHistory)

	_, ok = store.FindEntry("missing")
	assert.False(t, ok)
}

func TestStore_FindEntry_ReturnsCopy(t *testing.T) {
	_, store := setupTestDB(t)

	id := store.RecordContent(KindCode, "p", okResult, map[string]any{"k": "v"})
	e, _ := store.FindEntry(id)
	e.Metadata["k"] = "changed"
	e.Result[0] = '['

	again, _ := store.FindEntry(id)
	assert.Equal(t, "v", again.Metadata["k"])
	assert.JSONEq(t, string(okResult), string(again.Result))
}

func TestStore_AppendModification(t *testing.T) {
	_, store := setupTestDB(t)

	id := store.RecordContent(KindCode, "p", okResult, nil)
	require.NoError(t, store.AppendModification(id, Modification{RequestText: "hazlo más rápido", SpecificChange: "optimize", Result: okResult}))

	e, _ := store.FindEntry(id)
	require.Len(t, e.ModificationHistory, 1)
	assert.Equal(t, "optimize", e.ModificationHistory[0].SpecificChange)
	assert.False(t, e.ModificationHistory[0].Timestamp.IsZero())

	err := store.AppendModification("missing", Modification{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Summarize_Windows(t *testing.T) {
	_, store := setupTestDB(t)

	for i := 0; i < 12; i++ {
		store.RecordUsage(CapCode, fmt.Sprintf("q%d", i), okResult, nil)
	}
	for i := 0; i < 7; i++ {
		store.RecordContent(KindCode, fmt.Sprintf("prompt %d", i), okResult, nil)
	}
	for i := 0; i < 11; i++ {
		store.LogModification(ModificationLogEntry{RequestText: fmt.Sprintf("mod %d", i)})
	}

	sum := store.Summarize("anything")
	require.Len(t, sum.RecentUsage, RecentUsageWindow)
	assert.Equal(t, "q2", sum.RecentUsage[0].QueryExcerpt)
	require.Len(t, sum.RecentContent, RecentContentWindow)
	assert.Equal(t, "prompt 2", sum.RecentContent[0].OriginalPrompt)
	assert.Equal(t, "prompt 6", sum.RecentContent[4].OriginalPrompt)
	require.Len(t, sum.RecentModifications, RecentModificationWindow)
	assert.Equal(t, "mod 1", sum.RecentModifications[0].RequestText)
	assert.Equal(t, 12, sum.TotalUsageCount)
}

func TestStore_Summarize_TopCapabilitiesTieOrder(t *testing.T) {
	_, store := setupTestDB(t)

	// document counted first, then image, then code; code and document tie at 2.
	store.RecordUsage(CapDocument, "a", okResult, nil)
	store.RecordUsage(CapImage, "b", okResult, nil)
	store.RecordUsage(CapCode, "c", okResult, nil)
	store.RecordUsage(CapCode, "c", okResult, nil)
	store.RecordUsage(CapDocument, "a", okResult, nil)
	store.RecordUsage(CapResearch, "d", okResult, nil)

	sum := store.Summarize("")
	assert.Equal(t, []Capability{CapDocument, CapCode, CapImage}, sum.TopCapabilities)
}

func TestStore_Summarize_RelatedPastResults(t *testing.T) {
	_, store := setupTestDB(t)

	store.RecordUsage(CapChart, "gráfico de ventas mensuales por región", okResult, nil)
	store.RecordUsage(CapCode, "función python para ordenar", okResult, nil)

	sum := store.Summarize("quiero ventas mensuales otra vez")
	assert.True(t, sum.HasRelated(CapChart))
	assert.False(t, sum.HasRelated(CapCode))
}

func TestIsRelated(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"monthly sales chart", "sales chart for monthly review", true},
		{"Monthly SALES", "monthly sales", true},
		{"sales data", "sales report", false},
		{"the cat sat on", "the cat sat on", false}, // words too short
		{"", "anything here", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRelated(tt.a, tt.b), "IsRelated(%q, %q)", tt.a, tt.b)
	}
}

func TestStore_Clear_PreservesPreferences(t *testing.T) {
	_, store := setupTestDB(t)

	store.RecordUsage(CapCode, "x", okResult, nil)
	id := store.RecordContent(KindCode, "x", okResult, nil)
	store.LogModification(ModificationLogEntry{OriginalID: id})
	store.SetActiveTarget(id)

	store.Clear()

	snap := store.Snapshot()
	assert.Empty(t, snap.FunctionUsage)
	assert.Empty(t, snap.LastContent)
	assert.Empty(t, snap.ContentHistory)
	assert.Empty(t, snap.ModificationLog)
	assert.Empty(t, store.ActiveTarget())
	assert.Equal(t, 1, snap.PreferenceCounts[CapCode])
	assert.Equal(t, []Capability{CapCode}, store.Summarize("").TopCapabilities)
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	database, store := setupTestDB(t)

	store.RecordUsage(CapVR, "escena de playa", okResult, nil)
	id := store.RecordContent(KindVRScene, "escena de playa", okResult, nil)

	reloaded := NewStore(database.KV(), nil)
	e, ok := reloaded.FindEntry(id)
	require.True(t, ok)
	assert.Equal(t, KindVRScene, e.Kind)
	assert.Equal(t, 1, reloaded.Preferences()[CapVR])
}

func TestStore_LoadUnavailable_StartsEmpty(t *testing.T) {
	p := newMemPersistence()
	p.getErr = errors.New("disk gone")

	store := NewStore(p, nil)
	snap := store.Snapshot()
	assert.Empty(t, snap.FunctionUsage)
	assert.Empty(t, snap.ContentHistory)
}

func TestStore_LoadMalformed_StartsEmpty(t *testing.T) {
	p := newMemPersistence()
	p.data[SessionMemoryKey] = []byte("{not json")

	store := NewStore(p, nil)
	assert.Empty(t, store.ContentHistory())
	store.RecordUsage(CapCode, "x", okResult, nil)
	assert.Len(t, store.Snapshot().FunctionUsage, 1)
}

func TestStore_PersistFailure_KeepsInMemoryState(t *testing.T) {
	p := newMemPersistence()
	p.setErr = errors.New("quota exceeded")

	store := NewStore(p, nil)
	id := store.RecordContent(KindDocument, "informe", okResult, nil)

	_, ok := store.FindEntry(id)
	assert.True(t, ok)
	assert.Equal(t, 1, p.setCall)
}

func TestStore_ClockAndIDInjection(t *testing.T) {
	p := newMemPersistence()
	store := NewStore(p, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	store.newID = func() string { return "entry-1" }

	id := store.RecordContent(KindImage, "p", okResult, nil)
	assert.Equal(t, "entry-1", id)
	e, _ := store.FindEntry(id)
	assert.True(t, e.Timestamp.Equal(fixed))
}

func TestNormalize_RepairsPreferenceOrder(t *testing.T) {
	st := normalize(SessionMemory{
		PreferenceCounts: map[Capability]int{CapCode: 1, CapChart: 3},
		PreferenceOrder:  []Capability{CapCode, CapCode, CapImage},
	})
	assert.Equal(t, []Capability{CapCode, CapChart}, st.PreferenceOrder)
	assert.NotNil(t, st.LastContent)
}

func TestCapabilityContentKind(t *testing.T) {
	assert.Equal(t, KindVRScene, CapVR.ContentKind())
	assert.Equal(t, CapVR, KindVRScene.Capability())
	assert.Equal(t, KindChart, CapChart.ContentKind())
	assert.True(t, ValidCapability(CapDocument))
	assert.False(t, ValidCapability(CapGeneral))
}
