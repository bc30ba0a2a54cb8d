package footprint

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/islafoot/taint"
)

// gobFootprint is the on-disk encoding of a Footprint: encoding/gob is
// used rather than a third-party serialization library because no pack
// dependency addresses self-describing struct serialization to a local
// file the way gob does out of the box, and the cache's own content
// (closed-union taint sets over this module's private types) has no
// cross-language consumer that would call for protobuf/JSON instead.
type gobFootprint struct {
	WriteDataTaints       taint.Taints
	MemAddrTaints         taint.Taints
	BranchAddrTaints      taint.Taints
	RegisterReads         taint.RegSet
	RegisterWrites        taint.RegSet
	RegisterWritesTainted taint.RegSet
	IsStore               bool
	IsLoad                bool
	IsBranch              bool
}

func toGob(f *Footprint) gobFootprint {
	return gobFootprint{
		WriteDataTaints:       f.WriteDataTaints,
		MemAddrTaints:         f.MemAddrTaints,
		BranchAddrTaints:      f.BranchAddrTaints,
		RegisterReads:         f.RegisterReads,
		RegisterWrites:        f.RegisterWrites,
		RegisterWritesTainted: f.RegisterWritesTainted,
		IsStore:               f.IsStore,
		IsLoad:                f.IsLoad,
		IsBranch:              f.IsBranch,
	}
}

func fromGob(g gobFootprint) *Footprint {
	return &Footprint{
		WriteDataTaints:       g.WriteDataTaints,
		MemAddrTaints:         g.MemAddrTaints,
		BranchAddrTaints:      g.BranchAddrTaints,
		RegisterReads:         g.RegisterReads,
		RegisterWrites:        g.RegisterWrites,
		RegisterWritesTainted: g.RegisterWritesTainted,
		IsStore:               g.IsStore,
		IsLoad:                g.IsLoad,
		IsBranch:              g.IsBranch,
	}
}

// Cache is the persistent, content-addressed, per-opcode footprint store:
// one file per opcode under dir, named opcode_<hex>, written atomically
// (temp file + rename) so a crash mid-write never leaves a corrupt cache
// entry for a concurrent reader to observe. A sqlite-backed stats index
// alongside it tracks hit/miss counters and last-access timestamps.
type Cache struct {
	dir   string
	stats *sql.DB
}

// OpenCache opens (creating if necessary) a Cache rooted at dir, along
// with its cachestats.db hit/miss index.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("footprint: creating cache dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "cachestats.db"))
	if err != nil {
		return nil, fmt.Errorf("footprint: opening cache stats db: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS cache_stats (
	opcode TEXT PRIMARY KEY,
	hits INTEGER NOT NULL DEFAULT 0,
	misses INTEGER NOT NULL DEFAULT 0,
	last_access_unix INTEGER NOT NULL DEFAULT 0
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("footprint: migrating cache stats schema: %w", err)
	}

	return &Cache{dir: dir, stats: db}, nil
}

// Close releases the cache's stats database handle.
func (c *Cache) Close() error { return c.stats.Close() }

// opcodeKey turns an Opcode's own rendered form (e.g. "#x1a2b3c4d:32") into
// a filesystem- and sqlite-key-safe token by hex-encoding its bytes, so
// the content-addressed cache file name is stable and portable regardless
// of what characters the opcode's string rendering contains.
func opcodeKey(opcode Opcode) string {
	return fmt.Sprintf("%x", []byte(opcode))
}

func (c *Cache) path(opcode Opcode) string {
	return filepath.Join(c.dir, "opcode_"+opcodeKey(opcode))
}

// Get looks up opcode's footprint, recording a hit or miss in the stats
// index as it goes.
func (c *Cache) Get(opcode Opcode, now int64) (*Footprint, bool, error) {
	data, err := os.ReadFile(c.path(opcode))
	if err != nil {
		if os.IsNotExist(err) {
			c.recordAccess(opcode, false, now)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("footprint: reading cache entry for opcode %x: %w", opcode, err)
	}

	var g gobFootprint
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, false, fmt.Errorf("footprint: decoding cache entry for opcode %x: %w", opcode, err)
	}
	c.recordAccess(opcode, true, now)
	return fromGob(g), true, nil
}

// Put writes f as opcode's cache entry, writing to a temp file in dir
// first and renaming it into place so a concurrent Get never observes a
// partially written entry.
func (c *Cache) Put(opcode Opcode, f *Footprint) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toGob(f)); err != nil {
		return fmt.Errorf("footprint: encoding cache entry for opcode %x: %w", opcode, err)
	}

	tmp, err := os.CreateTemp(c.dir, "opcode_"+opcodeKey(opcode)+".tmp-*")
	if err != nil {
		return fmt.Errorf("footprint: creating temp cache entry for opcode %x: %w", opcode, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("footprint: writing temp cache entry for opcode %x: %w", opcode, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("footprint: closing temp cache entry for opcode %x: %w", opcode, err)
	}
	if err := os.Rename(tmpName, c.path(opcode)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("footprint: installing cache entry for opcode %x: %w", opcode, err)
	}
	return nil
}

func (c *Cache) recordAccess(opcode Opcode, hit bool, now int64) {
	hitDelta, missDelta := 0, 1
	if hit {
		hitDelta, missDelta = 1, 0
	}
	_, err := c.stats.Exec(`
INSERT INTO cache_stats (opcode, hits, misses, last_access_unix)
VALUES (?, ?, ?, ?)
ON CONFLICT(opcode) DO UPDATE SET
	hits = hits + excluded.hits,
	misses = misses + excluded.misses,
	last_access_unix = excluded.last_access_unix`,
		opcodeKey(opcode), hitDelta, missDelta, now)
	if err != nil {
		slog.Warn("footprint cache stats update failed", "opcode", opcodeKey(opcode), "error", err)
	}
}

// Stats returns the recorded hit/miss counters for opcode.
func (c *Cache) Stats(opcode Opcode) (hits, misses int64, lastAccess time.Time, err error) {
	row := c.stats.QueryRow(
		`SELECT hits, misses, last_access_unix FROM cache_stats WHERE opcode = ?`,
		opcodeKey(opcode))
	var unix int64
	if err := row.Scan(&hits, &misses, &unix); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, time.Time{}, nil
		}
		return 0, 0, time.Time{}, err
	}
	return hits, misses, time.Unix(unix, 0), nil
}
