package cas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/trinio-labs/bake/hash"
)

// EvictionPolicy selects which blobs BlobIndex.EvictionCandidates offers
// up first when freeing space.
type EvictionPolicy int

const (
	LRU EvictionPolicy = iota
	LargestFirst
)

// BlobEntry is the metadata BlobIndex tracks per hash.
type BlobEntry struct {
	Hash              hash.BlobHash
	Size              int64
	CompressionFormat string
	LastAccessed      int64 // unix seconds
	AccessCount       int64
	Created           int64 // unix seconds
}

// BlobIndex is a persistent metadata store keyed by BlobHash, backed by
// SQLite so it survives process restarts without bake having to rescan
// every blob on disk on every run. A corrupted index is not fatal: Open
// rebuilds from a filesystem scan of root when the database file fails
// to open cleanly.
type BlobIndex struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	hash TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	compression_format TEXT NOT NULL DEFAULT '',
	last_accessed INTEGER NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS blobs_last_accessed ON blobs(last_accessed);
CREATE INDEX IF NOT EXISTS blobs_size ON blobs(size);
`

// OpenBlobIndex opens (creating if absent) the SQLite-backed index at
// path. If the file exists but fails to open as a valid SQLite database,
// rebuild is called to reconstruct entries from the local blob store
// instead of failing outright.
func OpenBlobIndex(ctx context.Context, path string, rebuild func(ctx context.Context) ([]BlobEntry, error)) (*BlobIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		if rebuild == nil {
			return nil, fmt.Errorf("cas: opening blob index: %w", err)
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("cas: removing corrupt blob index: %w", rmErr)
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("cas: migrating blob index: %w", err)
	}

	idx := &BlobIndex{db: db}

	if rebuild != nil {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT count(*) FROM blobs").Scan(&count); err == nil && count == 0 {
			entries, err := rebuild(ctx)
			if err != nil {
				return nil, fmt.Errorf("cas: rebuilding blob index from filesystem: %w", err)
			}
			for _, e := range entries {
				if err := idx.Put(ctx, e); err != nil {
					return nil, err
				}
			}
		}
	}

	return idx, nil
}

func NewMemoryBlobIndex(ctx context.Context) (*BlobIndex, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, err
	}
	return &BlobIndex{db: db}, nil
}

func (idx *BlobIndex) Close() error { return idx.db.Close() }

// Put records or refreshes an entry. Concurrent Puts of the same hash
// are allowed and never create duplicate rows — the hash is the primary
// key, so a second insert degrades to an update.
func (idx *BlobIndex) Put(ctx context.Context, e BlobEntry) error {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO blobs (hash, size, compression_format, last_accessed, access_count, created)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(hash) DO UPDATE SET
			size = excluded.size,
			compression_format = excluded.compression_format
	`, e.Hash.String(), e.Size, e.CompressionFormat, e.LastAccessed, e.Created)
	return err
}

// Touch updates a blob's last-accessed time and bumps its access count,
// called whenever a cache lookup serves that blob.
func (idx *BlobIndex) Touch(ctx context.Context, h hash.BlobHash, now int64) error {
	_, err := idx.db.ExecContext(ctx, `
		UPDATE blobs SET last_accessed = ?, access_count = access_count + 1 WHERE hash = ?
	`, now, h.String())
	return err
}

var ErrEntryNotFound = errors.New("cas: blob index entry not found")

func (idx *BlobIndex) Get(ctx context.Context, h hash.BlobHash) (BlobEntry, error) {
	var e BlobEntry
	var hs string
	err := idx.db.QueryRowContext(ctx, `
		SELECT hash, size, compression_format, last_accessed, access_count, created
		FROM blobs WHERE hash = ?
	`, h.String()).Scan(&hs, &e.Size, &e.CompressionFormat, &e.LastAccessed, &e.AccessCount, &e.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return BlobEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return BlobEntry{}, err
	}
	e.Hash, err = hash.ParseBlobHash(hs)
	return e, err
}

func (idx *BlobIndex) Delete(ctx context.Context, h hash.BlobHash) error {
	_, err := idx.db.ExecContext(ctx, "DELETE FROM blobs WHERE hash = ?", h.String())
	return err
}

// EvictionCandidates returns, in the order the given policy prefers to
// evict them, enough hashes that deleting them would free at least
// targetBytes — without deleting anything itself, so the caller (cas.GC)
// decides whether those blobs are still referenced by a live manifest
// before acting.
func (idx *BlobIndex) EvictionCandidates(ctx context.Context, targetBytes int64, policy EvictionPolicy) ([]hash.BlobHash, error) {
	order := "last_accessed ASC"
	if policy == LargestFirst {
		order = "size DESC"
	}

	rows, err := idx.db.QueryContext(ctx, fmt.Sprintf(`SELECT hash, size FROM blobs ORDER BY %s`, order))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hash.BlobHash
	var freed int64
	for rows.Next() && freed < targetBytes {
		var hs string
		var size int64
		if err := rows.Scan(&hs, &size); err != nil {
			return nil, err
		}
		h, err := hash.ParseBlobHash(hs)
		if err != nil {
			continue
		}
		out = append(out, h)
		freed += size
	}
	return out, rows.Err()
}

// RebuildFromLocalStore scans a LocalBlobStore's on-disk layout and
// produces BlobEntry values for every blob found, with size taken from
// the filesystem and timestamps set to the file's mtime — used as the
// rebuild callback to OpenBlobIndex when the index file is corrupt.
func RebuildFromLocalStore(ctx context.Context, store *LocalBlobStore) ([]BlobEntry, error) {
	hashes, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	var entries []BlobEntry
	for h := range hashes {
		info, err := os.Stat(store.path(h))
		if err != nil {
			continue
		}
		entries = append(entries, BlobEntry{
			Hash:         h,
			Size:         info.Size(),
			LastAccessed: info.ModTime().Unix(),
			Created:      info.ModTime().Unix(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash.String() < entries[j].Hash.String() })
	return entries, nil
}
