package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const replayVersion = 2

// Replay is the append-only log of snapshots recorded for one match: one
// entry at creation and one per accepted action.
type Replay struct {
	MatchID string

	mu     sync.RWMutex
	states []*Snapshot
}

// NewReplay creates an empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{MatchID: matchID}
}

// Append adds a snapshot to the log.
func (r *Replay) Append(snapshot *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, snapshot)
}

// Len returns the number of recorded snapshots.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// At returns the snapshot at index, or nil.
func (r *Replay) At(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.states) {
		return nil
	}
	return r.states[index]
}

// Latest returns the most recent snapshot, or nil.
func (r *Replay) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

// States returns the recorded snapshots in order.
func (r *Replay) States() []*Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Snapshot(nil), r.states...)
}

// Cursor starts playback at the first snapshot. Cursors are independent of
// each other and of later appends.
func (r *Replay) Cursor() *Cursor {
	return &Cursor{states: r.States(), index: -1}
}

// Cursor steps through a fixed view of a replay. It is not safe for
// concurrent use.
type Cursor struct {
	states []*Snapshot
	index  int
}

// Next advances and returns the snapshot there, or nil past the end.
func (c *Cursor) Next() *Snapshot {
	if c.index+1 >= len(c.states) {
		c.index = len(c.states)
		return nil
	}
	c.index++
	return c.states[c.index]
}

// Previous steps back and returns the snapshot there, or nil before the start.
func (c *Cursor) Previous() *Snapshot {
	if c.index <= 0 {
		c.index = -1
		return nil
	}
	c.index--
	return c.states[c.index]
}

// Seek moves to index, clamped to the recorded range.
func (c *Cursor) Seek(index int) *Snapshot {
	if len(c.states) == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	if index >= len(c.states) {
		index = len(c.states) - 1
	}
	c.index = index
	return c.states[index]
}

// Position is the index of the current snapshot; -1 before the first Next.
func (c *Cursor) Position() int {
	return c.index
}

type replayHeader struct {
	MatchID    string
	SavedAt    time.Time
	Version    int
	StateCount int
	// FinalHash is the checksum of the last state, verified on load.
	FinalHash string
}

func replayPath(directory, matchID string) string {
	return filepath.Join(directory, matchID+".replay")
}

// Save writes the replay to <directory>/<match id>.replay as gzipped gob.
func (r *Replay) Save(directory string) error {
	states := r.States()

	header := replayHeader{
		MatchID:    r.MatchID,
		SavedAt:    time.Now(),
		Version:    replayVersion,
		StateCount: len(states),
	}
	if len(states) > 0 {
		sum, err := states[len(states)-1].Checksum()
		if err != nil {
			return err
		}
		header.FinalHash = sum.Hash
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(replayPath(directory, r.MatchID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	encoder := gob.NewEncoder(zw)
	if err := encoder.Encode(&header); err != nil {
		return fmt.Errorf("failed to encode replay header: %w", err)
	}
	for i, state := range states {
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplay reads a replay written by Save and checks its final state
// against the stored checksum.
func LoadReplay(directory, matchID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}
	defer zr.Close()

	decoder := gob.NewDecoder(zr)
	var header replayHeader
	if err := decoder.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode replay header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", header.Version)
	}

	replay := NewReplay(header.MatchID)
	for i := 0; i < header.StateCount; i++ {
		var state Snapshot
		if err := decoder.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.states = append(replay.states, &state)
	}

	if last := replay.Latest(); last != nil {
		ok, err := last.VerifyChecksum(&SerializationChecksum{Hash: header.FinalHash})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("replay %s: final state does not match its checksum", matchID)
		}
	}
	return replay, nil
}
