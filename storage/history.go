package storage

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/colorfulnotion/dexopt/log"
)

var runPrefix = []byte("run:")

// RunRecord is the persisted outcome of one dexpeep run.
type RunRecord struct {
	Seq             uint64         `cbor:"1,keyasint"`
	UnixMilli       int64          `cbor:"2,keyasint"`
	Input           string         `cbor:"3,keyasint"`
	Passes          int            `cbor:"4,keyasint"`
	Applied         map[string]int `cbor:"5,keyasint"`
	Methods         int            `cbor:"6,keyasint"`
	Scanned         int            `cbor:"7,keyasint"`
	Removed         int            `cbor:"8,keyasint"`
	Inconsistencies int            `cbor:"9,keyasint"`
	Digest          []byte         `cbor:"10,keyasint"`
}

func (r *RunRecord) Time() time.Time { return time.UnixMilli(r.UnixMilli) }

// Digest identifies the content of an input file.
func Digest(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("storage: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// HistoryStore keeps run records in key order of their sequence number.
type HistoryStore struct {
	ps *PersistenceStore

	mu   sync.Mutex
	next uint64
}

// OpenHistory opens the store at path; an empty path keeps it in memory.
func OpenHistory(path string) (*HistoryStore, error) {
	ps, err := NewPersistenceStore(path)
	if err != nil {
		return nil, err
	}
	h := &HistoryStore{ps: ps, next: 1}
	key, _, ok, err := ps.LastWithPrefix(runPrefix)
	if err != nil {
		ps.Close()
		return nil, err
	}
	if ok {
		h.next = seqOf(key) + 1
	}
	log.Debug(log.StorageModule, "history opened", "path", path, "next", h.next)
	return h, nil
}

func runKey(seq uint64) []byte {
	k := make([]byte, len(runPrefix)+8)
	copy(k, runPrefix)
	binary.BigEndian.PutUint64(k[len(runPrefix):], seq)
	return k
}

func seqOf(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(runPrefix):])
}

// Append stores rec under the next sequence number, which is written into rec and returned.
func (h *HistoryStore) Append(rec *RunRecord) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec.Seq = h.next
	if rec.UnixMilli == 0 {
		rec.UnixMilli = time.Now().UnixMilli()
	}
	data, err := cborEncMode.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal run %d: %w", rec.Seq, err)
	}
	if err := h.ps.Put(runKey(rec.Seq), data); err != nil {
		return 0, err
	}
	h.next++
	log.Trace(log.StorageModule, "run stored", "seq", rec.Seq, "bytes", len(data))
	return rec.Seq, nil
}

// Get returns the run with sequence number seq.
func (h *HistoryStore) Get(seq uint64) (*RunRecord, bool, error) {
	data, ok, err := h.ps.Get(runKey(seq))
	if err != nil || !ok {
		return nil, ok, err
	}
	rec, err := decodeRun(data)
	return rec, err == nil, err
}

// List returns the last limit runs in sequence order; limit <= 0 returns all of them.
func (h *HistoryStore) List(limit int) ([]*RunRecord, error) {
	kvs, err := h.ps.GetWithPrefix(runPrefix)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(kvs) > limit {
		kvs = kvs[len(kvs)-limit:]
	}
	out := make([]*RunRecord, 0, len(kvs))
	for _, kv := range kvs {
		rec, err := decodeRun(kv[1])
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", seqOf(kv[0]), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Totals sums the per-rule application counts of every stored run.
func (h *HistoryStore) Totals() (map[string]int, error) {
	runs, err := h.List(0)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int)
	for _, r := range runs {
		for name, n := range r.Applied {
			totals[name] += n
		}
	}
	return totals, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (h *HistoryStore) Prune(keep int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kvs, err := h.ps.GetWithPrefix(runPrefix)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	n := len(kvs) - keep
	for i := 0; i < n; i++ {
		if err := h.ps.Delete(kvs[i][0]); err != nil {
			return i, err
		}
	}
	if n < 0 {
		n = 0
	}
	log.Debug(log.StorageModule, "history pruned", "removed", n, "kept", len(kvs)-n)
	return n, nil
}

func (h *HistoryStore) Close() error {
	return h.ps.Close()
}

func decodeRun(data []byte) (*RunRecord, error) {
	var rec RunRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("storage: unmarshal run: %w", err)
	}
	return &rec, nil
}
