// Package shard partitions documents over a fixed set of indexer.Engine
// instances. Documents are routed by the xxhash of their key, so the same
// key always lands on the same shard.
package shard

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/span-search/pkg/errors"
)

// maxLineSize bounds a single JSONL document.
const maxLineSize = 4 << 20

// Router owns numShards engines, indexed by shard id.
type Router struct {
	engines []*indexer.Engine
	logger  *slog.Logger
}

// NewRouter creates numShards empty engines.
func NewRouter(numShards int) (*Router, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("%w: need at least one shard, got %d", apperrors.ErrInvalidInput, numShards)
	}
	r := &Router{
		engines: make([]*indexer.Engine, numShards),
		logger:  slog.Default().With("component", "shard-router"),
	}
	for i := range r.engines {
		r.engines[i] = indexer.NewEngine(i)
	}
	r.logger.Info("shard router ready", "num_shards", numShards)
	return r, nil
}

// Route returns the shard id responsible for key.
func (r *Router) Route(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(r.engines)))
}

// AddDocument indexes fields on the shard owning key.
func (r *Router) AddDocument(key string, fields map[string]string) (shardID, local int, err error) {
	shardID = r.Route(key)
	local, err = r.engines[shardID].AddDocument(fields)
	if err != nil {
		return 0, 0, fmt.Errorf("indexing %q on shard %d: %w", key, shardID, err)
	}
	return shardID, local, nil
}

// Engine returns the engine for a shard id.
func (r *Router) Engine(shardID int) (*indexer.Engine, error) {
	if shardID < 0 || shardID >= len(r.engines) {
		return nil, fmt.Errorf("unknown shard ID %d (valid range: 0-%d)", shardID, len(r.engines)-1)
	}
	return r.engines[shardID], nil
}

// Shards returns the engines in shard-id order.
func (r *Router) Shards() []*indexer.Engine {
	out := make([]*indexer.Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

func (r *Router) NumShards() int {
	return len(r.engines)
}

// SealAll makes every shard read-only.
func (r *Router) SealAll() {
	for _, e := range r.engines {
		e.Seal()
	}
}

// LoadJSONL reads one JSON object per line and indexes it. The value of
// keyField routes the document; lines without it are keyed by line number.
// Scalar values are indexed as text; nested values are skipped.
func (r *Router) LoadJSONL(in io.Reader, keyField string) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	loaded, line := 0, 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var obj map[string]any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return loaded, fmt.Errorf("%w: line %d: %v", apperrors.ErrInvalidInput, line, err)
		}
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case json.Number:
				fields[k] = val.String()
			case bool:
				fields[k] = strconv.FormatBool(val)
			}
		}
		key := fields[keyField]
		if key == "" {
			key = strconv.Itoa(line)
		}
		if _, _, err := r.AddDocument(key, fields); err != nil {
			return loaded, err
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("reading corpus: %w", err)
	}
	r.logger.Info("corpus loaded", "documents", loaded)
	return loaded, nil
}
