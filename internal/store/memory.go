package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"askbox/internal/model"
)

const (
	tableAskee = "askee"
	tableAsk   = "ask"
)

// Memory keeps askees and asks in maps. It enforces the same constraints as
// the Postgres schema and reports violations the way Postgres would.
type Memory struct {
	mu sync.RWMutex

	snapshotFile string
	persistMu    sync.Mutex
	gen          uint64
	persistedGen uint64

	askeesByID   map[int64]model.Askee
	asksByID     map[int64]model.Ask
	askIDByDedup map[string]int64

	seq *seqGenerator
	now func() time.Time
}

type MemoryOptions struct {
	// SnapshotFile, when set, is loaded on start and rewritten after every insert.
	SnapshotFile string
	Now          func() time.Time
}

func NewMemory() *Memory {
	return newMemory(MemoryOptions{})
}

// NewMemoryWithOptions loads opts.SnapshotFile when it exists. A snapshot that
// cannot be read is an error: starting empty would overwrite it on the next
// insert.
func NewMemoryWithOptions(opts MemoryOptions) (*Memory, error) {
	m := newMemory(opts)
	if m.snapshotFile != "" {
		if err := m.loadSnapshot(m.snapshotFile); err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", m.snapshotFile, err)
		}
	}
	return m, nil
}

func newMemory(opts MemoryOptions) *Memory {
	m := &Memory{
		askeesByID:   make(map[int64]model.Askee),
		asksByID:     make(map[int64]model.Ask),
		askIDByDedup: make(map[string]int64),
		seq:          newSeqGenerator(),
		snapshotFile: opts.SnapshotFile,
		now:          opts.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Memory) Close() {}

func (m *Memory) CreateAskee(ctx context.Context, askee model.Askee) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	askee.ID = m.seq.nextForTable(tableAskee)
	askee.CreatedAt = model.NewTimestamp(m.now())
	m.askeesByID[askee.ID] = askee
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persistSnapshot(snap)
	return askee.ID, nil
}

func (m *Memory) LoadAskee(ctx context.Context, id int64) (model.Askee, error) {
	if err := ctx.Err(); err != nil {
		return model.Askee{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	askee, ok := m.askeesByID[id]
	if !ok {
		return model.Askee{}, fmt.Errorf("load askee %d: %w", id, pgx.ErrNoRows)
	}
	return askee, nil
}

func (m *Memory) ListAskees(ctx context.Context) ([]model.Askee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedAskees(m.askeesByID), nil
}

func (m *Memory) CreateAsk(ctx context.Context, ask model.Ask) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if _, ok := m.askeesByID[ask.Askee]; !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("insert ask: %w", &pgconn.PgError{
			Severity:       "ERROR",
			Code:           pgerrcode.ForeignKeyViolation,
			Message:        `insert or update on table "ask" violates foreign key constraint "` + askAskeeConstraint + `"`,
			Detail:         fmt.Sprintf(`Key (askee)=(%d) is not present in table "askee".`, ask.Askee),
			TableName:      tableAsk,
			ConstraintName: askAskeeConstraint,
		})
	}
	if _, dup := m.askIDByDedup[ask.Dedup]; dup {
		m.mu.Unlock()
		return 0, fmt.Errorf("insert ask: %w", &pgconn.PgError{
			Severity:       "ERROR",
			Code:           pgerrcode.UniqueViolation,
			Message:        `duplicate key value violates unique constraint "` + askDedupConstraint + `"`,
			Detail:         fmt.Sprintf("Key (dedup)=(%s) already exists.", ask.Dedup),
			TableName:      tableAsk,
			ConstraintName: askDedupConstraint,
		})
	}

	ask.ID = m.seq.nextForTable(tableAsk)
	ask.CreatedAt = model.NewTimestamp(m.now())
	m.asksByID[ask.ID] = ask
	m.askIDByDedup[ask.Dedup] = ask.ID
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persistSnapshot(snap)
	return ask.ID, nil
}

func (m *Memory) LoadAsk(ctx context.Context, id int64) (model.Ask, error) {
	if err := ctx.Err(); err != nil {
		return model.Ask{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ask, ok := m.asksByID[id]
	if !ok {
		return model.Ask{}, fmt.Errorf("load ask %d: %w", id, pgx.ErrNoRows)
	}
	return ask, nil
}

func (m *Memory) ListAsksInRange(ctx context.Context, askee int64, before, after time.Time) ([]model.Ask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.Ask, 0)
	for _, ask := range m.asksByID {
		if ask.Askee != askee || ask.CreatedAt == nil {
			continue
		}
		created := ask.CreatedAt.Time()
		if created.Before(before) && created.After(after) {
			result = append(result, ask)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].CreatedAt.Time(), result[j].CreatedAt.Time()
		if ti.Equal(tj) {
			return result[i].ID < result[j].ID
		}
		return ti.Before(tj)
	})
	return result, nil
}

func sortedAskees(byID map[int64]model.Askee) []model.Askee {
	result := make([]model.Askee, 0, len(byID))
	for _, a := range byID {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type snapshotFile struct {
	Version int           `json:"version"`
	Askees  []model.Askee `json:"askees"`
	Asks    []model.Ask   `json:"asks"`
	SavedAt int64         `json:"savedAt"`
}

type snapshot struct {
	gen    uint64
	askees []model.Askee
	asks   []model.Ask
}

func (m *Memory) snapshotLocked() *snapshot {
	if m.snapshotFile == "" {
		return nil
	}
	asks := make([]model.Ask, 0, len(m.asksByID))
	for _, a := range m.asksByID {
		asks = append(asks, a)
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].ID < asks[j].ID })
	m.gen++
	return &snapshot{gen: m.gen, askees: sortedAskees(m.askeesByID), asks: asks}
}

func (m *Memory) loadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", file.Version)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range file.Askees {
		if a.ID <= 0 {
			continue
		}
		m.askeesByID[a.ID] = a
		m.seq.observe(tableAskee, a.ID)
	}
	for _, a := range file.Asks {
		if a.ID <= 0 {
			continue
		}
		if _, ok := m.askeesByID[a.Askee]; !ok {
			slog.Warn("memory store: dropping ask with unknown askee", "ask", a.ID, "askee", a.Askee)
			continue
		}
		m.asksByID[a.ID] = a
		m.askIDByDedup[a.Dedup] = a.ID
		m.seq.observe(tableAsk, a.ID)
	}
	return nil
}

// persistSnapshot writes snap through a temp file and rename so readers never
// see a partial file.
func (m *Memory) persistSnapshot(snap *snapshot) {
	path := m.snapshotFile
	if path == "" || snap == nil {
		return
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	// A concurrent insert may already have written a newer snapshot.
	if snap.gen <= m.persistedGen {
		return
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Error("memory store: mkdir failed", "dir", dir, "error", err)
		return
	}

	file := snapshotFile{Version: 1, Askees: snap.askees, Asks: snap.asks, SavedAt: m.now().UnixMilli()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		slog.Error("memory store: marshal snapshot failed", "error", err)
		return
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		slog.Error("memory store: create temp failed", "error", err)
		return
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		slog.Error("memory store: chmod temp failed", "error", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		slog.Error("memory store: write temp failed", "error", err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		slog.Error("memory store: sync temp failed", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		slog.Error("memory store: close temp failed", "error", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		slog.Error("memory store: rename failed", "error", err)
		return
	}
	m.persistedGen = snap.gen
}
