package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Named limits of the session memory.
const (
	SessionMemoryKey         = "innovaplus_session_memory"
	UsageHistoryCap          = 50
	RecentUsageWindow        = 10
	RecentContentWindow      = 5
	RecentModificationWindow = 10
	TopCapabilitiesLimit     = 3
	QueryExcerptLimit        = 100

	// relatedMinShared is how many significant words two texts must share.
	relatedMinShared = 2
	// significantWordLen is the rune length a word must exceed to count.
	significantWordLen = 3
)

// ErrNotFound is returned when a content entry id is unknown.
var ErrNotFound = errors.New("memory: content entry not found")

// Persistence is the durable key-value backend for session memory.
type Persistence interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Store owns the session memory and writes it through to Persistence after
// every mutation. Persistence failures are logged and never surface to callers.
type Store struct {
	mu      sync.Mutex
	persist Persistence
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
	state   SessionMemory
}

// NewStore creates a Store and loads any previously persisted memory.
func NewStore(p Persistence, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		persist: p,
		logger:  logger,
		now:     time.Now,
		newID:   newEntryID,
	}
	s.load()
	return s
}

func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func emptyState() SessionMemory {
	return SessionMemory{
		LastContent:      map[Capability]LastContent{},
		PreferenceCounts: map[Capability]int{},
	}
}

// load reads the persisted blob; anything unreadable yields empty memory.
func (s *Store) load() {
	s.state = emptyState()
	if s.persist == nil {
		return
	}
	raw, ok, err := s.persist.Get(SessionMemoryKey)
	if err != nil {
		s.logger.Warn("session memory unavailable, starting empty", zap.Error(err))
		return
	}
	if !ok || len(raw) == 0 {
		return
	}
	var st SessionMemory
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Warn("session memory unreadable, starting empty", zap.Error(err))
		return
	}
	s.state = normalize(st)
}

// normalize fills nil maps and repairs the preference order.
func normalize(st SessionMemory) SessionMemory {
	if st.LastContent == nil {
		st.LastContent = map[Capability]LastContent{}
	}
	if st.PreferenceCounts == nil {
		st.PreferenceCounts = map[Capability]int{}
	}
	seen := make(map[Capability]bool, len(st.PreferenceOrder))
	order := st.PreferenceOrder[:0:0]
	for _, c := range st.PreferenceOrder {
		if _, counted := st.PreferenceCounts[c]; counted && !seen[c] {
			seen[c] = true
			order = append(order, c)
		}
	}
	var missing []Capability
	for c := range st.PreferenceCounts {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	st.PreferenceOrder = append(order, missing...)
	if len(st.FunctionUsage) > UsageHistoryCap {
		st.FunctionUsage = st.FunctionUsage[len(st.FunctionUsage)-UsageHistoryCap:]
	}
	return st
}

// save writes the whole state. Callers hold s.mu.
func (s *Store) save() {
	if s.persist == nil {
		return
	}
	raw, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Warn("session memory encode failed", zap.Error(err))
		return
	}
	if err := s.persist.Set(SessionMemoryKey, raw); err != nil {
		s.logger.Warn("session memory persist failed", zap.Error(err))
	}
}

// Excerpt truncates a query to QueryExcerptLimit runes.
func Excerpt(query string) string {
	if utf8.RuneCountInString(query) <= QueryExcerptLimit {
		return query
	}
	return string([]rune(query)[:QueryExcerptLimit])
}

// RecordUsage appends a usage record. A nil result records a failed attempt;
// a non-nil result also updates the capability's last content and preference count.
func (s *Store) RecordUsage(c Capability, query string, result json.RawMessage, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	succeeded := len(result) > 0 && string(result) != "null"
	rec := UsageRecord{
		Timestamp:    now,
		Capability:   c,
		QueryExcerpt: Excerpt(query),
		Succeeded:    succeeded,
		ResultKind:   "unknown",
		Metadata:     cloneMap(metadata),
	}
	if succeeded {
		rec.ResultKind = string(c.ContentKind())
	}

	s.state.FunctionUsage = append(s.state.FunctionUsage, rec)
	if n := len(s.state.FunctionUsage); n > UsageHistoryCap {
		s.state.FunctionUsage = append([]UsageRecord(nil), s.state.FunctionUsage[n-UsageHistoryCap:]...)
	}

	if succeeded {
		s.state.LastContent[c] = LastContent{Query: query, Result: cloneRaw(result), Timestamp: now}
		if _, counted := s.state.PreferenceCounts[c]; !counted {
			s.state.PreferenceOrder = append(s.state.PreferenceOrder, c)
		}
		s.state.PreferenceCounts[c]++
	}

	s.save()
}

// RecordContent appends a new content entry and returns its id.
func (s *Store) RecordContent(kind ContentKind, prompt string, result json.RawMessage, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := ContentEntry{
		ID:                  s.newID(),
		Timestamp:           s.now(),
		Kind:                kind,
		OriginalPrompt:      prompt,
		Result:              cloneRaw(result),
		Metadata:            cloneMap(metadata),
		ModificationHistory: []Modification{},
	}
	s.state.ContentHistory = append(s.state.ContentHistory, entry)
	s.save()
	return entry.ID
}

// FindEntry returns the content entry with the given id.
func (s *Store) FindEntry(id string) (ContentEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.state.ContentHistory {
		if e.ID == id {
			return cloneEntry(e), true
		}
	}
	return ContentEntry{}, false
}

// AppendModification adds a revision to the target entry's history.
func (s *Store) AppendModification(targetID string, m Modification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.ContentHistory {
		if s.state.ContentHistory[i].ID == targetID {
			m.Result = cloneRaw(m.Result)
			if m.Timestamp.IsZero() {
				m.Timestamp = s.now()
			}
			s.state.ContentHistory[i].ModificationHistory = append(s.state.ContentHistory[i].ModificationHistory, m)
			s.save()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, targetID)
}

// LogModification appends to the modification log.
func (s *Store) LogModification(e ModificationLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.state.ModificationLog = append(s.state.ModificationLog, e)
	s.save()
}

// SetActiveTarget remembers the entry the user is currently revising.
func (s *Store) SetActiveTarget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveTargetID = id
	s.save()
}

// ActiveTarget returns the entry id set by SetActiveTarget.
func (s *Store) ActiveTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveTargetID
}

// RecentContent returns up to the last RecentContentWindow entries, oldest first.
func (s *Store) RecentContent() []ContentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(lastN(s.state.ContentHistory, RecentContentWindow))
}

// ContentHistory returns every content entry, oldest first.
func (s *Store) ContentHistory() []ContentEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.state.ContentHistory)
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() SessionMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(s.state)
	if err != nil {
		return emptyState()
	}
	var out SessionMemory
	if err := json.Unmarshal(raw, &out); err != nil {
		return emptyState()
	}
	return normalize(out)
}

// Summarize builds the memory summary for a new query.
func (s *Store) Summarize(query string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	related := map[Capability]LastContent{}
	for c, lc := range s.state.LastContent {
		if IsRelated(query, lc.Query) {
			related[c] = LastContent{Query: lc.Query, Result: cloneRaw(lc.Result), Timestamp: lc.Timestamp}
		}
	}

	return Summary{
		RecentUsage:         append([]UsageRecord{}, lastN(s.state.FunctionUsage, RecentUsageWindow)...),
		RelatedPastResults:  related,
		RecentContent:       cloneEntries(lastN(s.state.ContentHistory, RecentContentWindow)),
		RecentModifications: append([]ModificationLogEntry{}, lastN(s.state.ModificationLog, RecentModificationWindow)...),
		TotalUsageCount:     len(s.state.FunctionUsage),
		TopCapabilities:     s.topCapabilities(TopCapabilitiesLimit),
	}
}

// topCapabilities ranks by count, ties broken by first-count order.
func (s *Store) topCapabilities(limit int) []Capability {
	ranked := append([]Capability{}, s.state.PreferenceOrder...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.state.PreferenceCounts[ranked[i]] > s.state.PreferenceCounts[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Preferences returns the success count per capability.
func (s *Store) Preferences() map[Capability]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Capability]int, len(s.state.PreferenceCounts))
	for c, n := range s.state.PreferenceCounts {
		out[c] = n
	}
	return out
}

// Clear drops usage, content, modification and active state. Preference
// counts survive.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, order := s.state.PreferenceCounts, s.state.PreferenceOrder
	s.state = emptyState()
	s.state.PreferenceCounts = prefs
	s.state.PreferenceOrder = order
	s.save()
}

// IsRelated reports whether a and b share at least two distinct words longer
// than three characters, compared case-insensitively.
func IsRelated(a, b string) bool {
	words := significantWords(a)
	if len(words) < relatedMinShared {
		return false
	}
	shared := 0
	for w := range significantWords(b) {
		if words[w] {
			shared++
			if shared >= relatedMinShared {
				return true
			}
		}
	}
	return false
}

func significantWords(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) > significantWordLen {
			out[w] = true
		}
	}
	return out
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEntry(e ContentEntry) ContentEntry {
	e.Result = cloneRaw(e.Result)
	e.Metadata = cloneMap(e.Metadata)
	mods := make([]Modification, len(e.ModificationHistory))
	for i, m := range e.ModificationHistory {
		m.Result = cloneRaw(m.Result)
		mods[i] = m
	}
	e.ModificationHistory = mods
	return e
}

func cloneEntries(entries []ContentEntry) []ContentEntry {
	out := make([]ContentEntry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}
