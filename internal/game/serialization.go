package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

func init() {
	// Custom state values travel as interface values inside snapshots.
	gob.Register(int(0))
	gob.Register(false)
	gob.Register("")
	gob.Register(float64(0))
}

// SerializationChecksum is a deterministic digest of a snapshot, used to detect
// divergent state across replays or transport.
type SerializationChecksum struct {
	Hash      string
	Timestamp string
	Version   int
}

// Checksum computes a SHA-256 over a canonical rendering of the snapshot.
// Timestamps are excluded from the hash.
func (s *Snapshot) Checksum() (*SerializationChecksum, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(s.canonical())); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	return &SerializationChecksum{
		Hash:      hex.EncodeToString(hash.Sum(nil)),
		Timestamp: s.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}, nil
}

// VerifyChecksum reports whether the snapshot still matches an earlier checksum.
func (s *Snapshot) VerifyChecksum(expected *SerializationChecksum) (bool, error) {
	computed, err := s.Checksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// canonical renders the snapshot independent of map iteration order.
func (s *Snapshot) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%d|%s|%s|%t|%t|%t|%s|%t|%s\n",
		s.MatchID,
		s.Turn,
		s.CurrentPlayerID,
		s.Phase,
		s.Flags.Attacked,
		s.Flags.ItemAttached,
		s.Flags.ActiveChanged,
		s.Winner,
		s.Aborted,
		s.AbortReason,
	)

	// Player order matters: it decides who moves first.
	for _, p := range s.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d\n", p.ID, p.Name, p.PileCount, p.ActiveRow)
		for _, card := range p.Hand {
			fmt.Fprintf(&buf, "  HAND:%s|%s\n", card.CardID, card.Instance)
		}
		for i, row := range p.Board {
			fmt.Fprintf(&buf, "  ROW:%d|%s|%s|%d\n", i, cardKey(row.Hermit), cardKey(row.Effect), row.Health)
			for _, item := range row.Items {
				fmt.Fprintf(&buf, "    ITEM:%d|%s|%s\n", item.Slot, item.CardID, item.Instance)
			}
			for _, ailment := range row.Ailments {
				fmt.Fprintf(&buf, "    AILMENT:%s|%d\n", ailment.Kind, ailment.Duration)
			}
		}
		for _, card := range p.Discarded {
			fmt.Fprintf(&buf, "  DISCARDED:%s|%s\n", card.CardID, card.Instance)
		}

		flipIDs := make([]string, 0, len(p.CoinFlips))
		for id := range p.CoinFlips {
			flipIDs = append(flipIDs, id)
		}
		sort.Strings(flipIDs)
		for _, id := range flipIDs {
			sides := make([]string, 0, len(p.CoinFlips[id]))
			for _, side := range p.CoinFlips[id] {
				sides = append(sides, string(side))
			}
			fmt.Fprintf(&buf, "  COINFLIP:%s=%s\n", id, strings.Join(sides, ","))
		}

		customKeys := make([]string, 0, len(p.CustomState))
		for key := range p.CustomState {
			customKeys = append(customKeys, key)
		}
		sort.Strings(customKeys)
		for _, key := range customKeys {
			fmt.Fprintf(&buf, "  CUSTOM:%s=%v\n", key, p.CustomState[key])
		}
	}

	return buf.String()
}

func cardKey(card *model.CardInstance) string {
	if card == nil {
		return "-"
	}
	return card.CardID + "/" + card.Instance
}

// SerializeToBytes gob-encodes a snapshot.
func (s *Snapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a snapshot produced by SerializeToBytes.
func DeserializeFromBytes(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// ValidateSerializationRoundtrip checks that a snapshot survives encoding
// without changing its checksum.
func ValidateSerializationRoundtrip(snapshot *Snapshot) error {
	original, err := snapshot.Checksum()
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := snapshot.SerializeToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	roundtrip, err := decoded.Checksum()
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if original.Hash != roundtrip.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s", original.Hash, roundtrip.Hash)
	}
	return nil
}
