package calcpro

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
)

// Identity tags which of the two logical evidence collections an operation
// addresses. It is derived at authentication time from which stored hash
// matched; it is never persisted.
type Identity string

const (
	IdentityInvalid Identity = ""
	IdentitySecret  Identity = "secret"
	IdentityDecoy   Identity = "decoy"
)

func (i Identity) slot() string { return string(i) }

// ItemType enumerates the kinds of captured artifacts.
type ItemType string

const (
	TypePhoto ItemType = "photo"
	TypeVideo ItemType = "video"
	TypeAudio ItemType = "audio"
	TypeNote  ItemType = "note"
)

func (t ItemType) valid() bool {
	switch t {
	case TypePhoto, TypeVideo, TypeAudio, TypeNote:
		return true
	}
	return false
}

// EvidenceItem is one captured artifact or note. Items are immutable after
// creation apart from deletion; there is no edit-in-place operation.
//
// For media types Content is a relative filename into the media store; for
// notes it is the literal text body. The field names match the persisted
// JSON produced by earlier releases.
type EvidenceItem struct {
	ID        string            `json:"id"`
	Type      ItemType          `json:"type"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"` // epoch milliseconds
	Metadata  forensic.Metadata `json:"metadata"`
	Encrypted bool              `json:"encrypted"`
}

// NewItem carries the caller-supplied inputs for a new evidence record; the
// repository fills in id, timestamp and forensic metadata.
type NewItem struct {
	Type    ItemType
	Title   string
	Content string
	Extras  forensic.Extras
}

// newItemID generates the opaque external identifier: creation instant plus
// a random suffix, so ids sort roughly by age without colliding.
func newItemID() string {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("%d-0", time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// decodeItems parses a decrypted vault payload, enforcing the evidence
// schema strictly. Arbitrary JSON that happens to decrypt cleanly is
// rejected rather than trusted.
func decodeItems(plaintext []byte) ([]EvidenceItem, error) {
	var items []EvidenceItem
	if err := json.Unmarshal(plaintext, &items); err != nil {
		return nil, fmt.Errorf("malformed vault payload: %w", err)
	}
	if items == nil {
		items = []EvidenceItem{}
	}
	for i := range items {
		if err := validateItem(&items[i]); err != nil {
			return nil, fmt.Errorf("invalid evidence record %d: %w", i, err)
		}
	}
	return items, nil
}

func validateItem(item *EvidenceItem) error {
	if item.ID == "" {
		return fmt.Errorf("missing id")
	}
	if !item.Type.valid() {
		return fmt.Errorf("unknown type %q", item.Type)
	}
	if item.Timestamp <= 0 {
		return fmt.Errorf("missing timestamp")
	}
	if item.Metadata.ChainOfCustodyID == "" {
		return fmt.Errorf("missing chain of custody id")
	}
	return nil
}

// encodeItems serializes the collection to its canonical persisted form.
func encodeItems(items []EvidenceItem) ([]byte, error) {
	if items == nil {
		items = []EvidenceItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize evidence: %w", err)
	}
	return data, nil
}
