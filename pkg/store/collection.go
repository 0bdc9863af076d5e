package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"offline-llm-be/pkg/embedding"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrEmptyCollection indicates a similarity search against a collection with
// zero indexed passages. Distinct from "no results after ranking".
var ErrEmptyCollection = errors.New("collection has no indexed passages")

const dbFileName = "passages.db"

// Collection is a named, disk-backed set of (text, vector, metadata) triples
// supporting similarity search. One SQLite file per collection directory, so
// purging a collection is deleting its directory.
type Collection struct {
	name     string
	dir      string
	db       *sql.DB
	embedder embedding.EmbeddingProvider

	mu sync.RWMutex
}

// OpenCollection opens (creating if needed) the collection stored under dir.
func OpenCollection(dir, name string, embedder embedding.EmbeddingProvider) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collection dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("open collection db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS passages (
		id         TEXT PRIMARY KEY,
		text       TEXT NOT NULL,
		source     TEXT NOT NULL,
		page       INTEGER,
		indexed_at TIMESTAMP NOT NULL,
		embedding  BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init collection schema: %w", err)
	}

	return &Collection{
		name:     name,
		dir:      dir,
		db:       db,
		embedder: embedder,
	}, nil
}

func (c *Collection) Name() string { return c.name }
func (c *Collection) Dir() string  { return c.dir }

func (c *Collection) Close() error {
	return c.db.Close()
}

// AddPassages embeds and stores the given passages. Embedding failures abort
// the whole batch so a collection never holds passages without vectors.
func (c *Collection) AddPassages(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	type embedded struct {
		p   Passage
		vec []float32
	}
	batch := make([]embedded, 0, len(passages))
	for _, p := range passages {
		res, err := c.embedder.Generate(ctx, p.Text, embedding.TaskDocument)
		if err != nil {
			return fmt.Errorf("embed passage from %q: %w", p.Source, err)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.IndexedAt.IsZero() {
			p.IndexedAt = time.Now().UTC()
		}
		batch = append(batch, embedded{p: p, vec: res.Embedding.Values})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (id, text, source, page, indexed_at, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range batch {
		var page any
		if e.p.Page != nil {
			page = *e.p.Page
		}
		if _, err := stmt.ExecContext(ctx, e.p.ID, e.p.Text, e.p.Source, page, e.p.IndexedAt, encodeVector(e.vec)); err != nil {
			return fmt.Errorf("store passage %s: %w", e.p.ID, err)
		}
	}

	return tx.Commit()
}

// Search returns up to k passages ranked by cosine similarity to the query,
// or by maximal-marginal-relevance when mode is SearchDiversity.
func (c *Collection) Search(ctx context.Context, query string, k int, mode SearchMode) ([]Passage, error) {
	if k <= 0 {
		return nil, nil
	}

	count, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("collection %q: %w", c.name, ErrEmptyCollection)
	}

	res, err := c.embedder.Generate(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := res.Embedding.Values

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, text, source, page, indexed_at, embedding FROM passages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		p     Passage
		vec   []float32
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var (
			p    Passage
			page sql.NullInt64
			blob []byte
		)
		if err := rows.Scan(&p.ID, &p.Text, &p.Source, &page, &p.IndexedAt, &blob); err != nil {
			return nil, err
		}
		if page.Valid {
			n := int(page.Int64)
			p.Page = &n
		}
		vec := decodeVector(blob)
		candidates = append(candidates, scored{p: p, vec: vec, score: cosine(queryVec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if mode != SearchDiversity {
		if k > len(candidates) {
			k = len(candidates)
		}
		out := make([]Passage, k)
		for i := 0; i < k; i++ {
			out[i] = candidates[i].p
		}
		return out, nil
	}

	// Maximal marginal relevance over a widened candidate pool.
	pool := k * 4
	if pool > len(candidates) {
		pool = len(candidates)
	}
	if k > pool {
		k = pool
	}
	const lambda = 0.5
	selected := make([]scored, 0, k)
	remaining := append([]scored(nil), candidates[:pool]...)
	for len(selected) < k && len(remaining) > 0 {
		bestIdx, bestVal := 0, math.Inf(-1)
		for i, cand := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				if sim := cosine(cand.vec, s.vec); sim > redundancy {
					redundancy = sim
				}
			}
			val := lambda*cand.score - (1-lambda)*redundancy
			if val > bestVal {
				bestIdx, bestVal = i, val
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]Passage, len(selected))
	for i, s := range selected {
		out[i] = s.p
	}
	return out, nil
}

// HasSource reports whether any passage from the given source identifier is
// already indexed. Used for idempotent re-ingestion.
func (c *Collection) HasSource(ctx context.Context, source string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM passages WHERE source = ?`, source).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM passages`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- vector encoding / math ---

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
