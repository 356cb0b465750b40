// Package forensic builds the chain-of-custody metadata stamped onto each
// evidence record at capture time. A Metadata record is built once, when the
// record is created, and never mutated afterwards.
package forensic

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ch4lkP0wd3r/CalcPro/internal/crypto"
	"github.com/google/uuid"
)

// DeviceInfo identifies the capturing device.
type DeviceInfo struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	OSName     string `json:"osName"`
	OSVersion  string `json:"osVersion"`
	DeviceName string `json:"deviceName"`
}

// GPSFix is an optional location stamp.
type GPSFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// MediaAttributes are optional attributes of captured media files.
type MediaAttributes struct {
	FileSize   int64   `json:"fileSize,omitempty"`
	MimeType   string  `json:"mimeType,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	Codec      string  `json:"codec,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
}

// Metadata is the immutable forensic record attached to one evidence item.
type Metadata struct {
	CaptureTime    string `json:"captureTime"` // RFC 3339
	CaptureEpochMs int64  `json:"captureEpochMs"`
	Timezone       string `json:"timezone"`

	Device DeviceInfo       `json:"device"`
	GPS    *GPSFix          `json:"gps,omitempty"`
	Media  *MediaAttributes `json:"media,omitempty"`

	// IntegrityHash is a tamper-evidence fingerprint over the metadata
	// composite (type, capture time, device model, item id). It does not
	// cover media bytes; ContentHash does, when one was supplied.
	IntegrityHash string `json:"integrityHash"`
	ContentHash   string `json:"contentHash,omitempty"`

	ChainOfCustodyID string `json:"chainOfCustodyId"`

	EvidenceClassification string `json:"evidenceClassification"`
	CollectionMethod       string `json:"collectionMethod"`

	IsOriginal      bool `json:"isOriginal"`
	HasBeenModified bool `json:"hasBeenModified"`

	Tags []string `json:"tags"`
}

// Extras carries the optional inputs available at capture time.
type Extras struct {
	GPS   *GPSFix
	Media *MediaAttributes

	// ContentSHA256 is the digest of the captured media bytes, if the
	// caller computed one. Stored as ContentHash.
	ContentSHA256 string

	Tags []string
}

// Builder stamps evidence records for one device. The clock is injectable
// for tests.
type Builder struct {
	device DeviceInfo
	now    func() time.Time
}

// NewBuilder returns a Builder for the given device identity.
func NewBuilder(device DeviceInfo) *Builder {
	return &Builder{
		device: device,
		now:    time.Now,
	}
}

// NewBuilderWithClock returns a Builder using the supplied clock.
func NewBuilderWithClock(device DeviceInfo, now func() time.Time) *Builder {
	return &Builder{device: device, now: now}
}

// Build stamps a new record of the given type and id.
//
// The classification and collection method derive deterministically from the
// item type. IsOriginal and HasBeenModified are fixed at creation; no in-app
// editing exists to flip them.
func (b *Builder) Build(itemType, itemID string, extras Extras) Metadata {
	captured := b.now()
	zone, _ := captured.Zone()

	tags := append([]string(nil), extras.Tags...)
	tags = append(tags, "evidence", itemType)

	return Metadata{
		CaptureTime:    captured.Format(time.RFC3339),
		CaptureEpochMs: captured.UnixMilli(),
		Timezone:       zone,

		Device: b.device,
		GPS:    extras.GPS,
		Media:  extras.Media,

		IntegrityHash: integrityHash(itemType, captured, b.device.Model, itemID),
		ContentHash:   extras.ContentSHA256,

		ChainOfCustodyID: chainOfCustodyID(captured),

		EvidenceClassification: classify(itemType),
		CollectionMethod:       collectionMethod(itemType),

		IsOriginal:      true,
		HasBeenModified: false,

		Tags: tags,
	}
}

// integrityHash fingerprints the metadata composite, not the content.
func integrityHash(itemType string, captured time.Time, deviceModel, itemID string) string {
	composite := strings.Join([]string{
		itemType,
		captured.Format(time.RFC3339),
		deviceModel,
		itemID,
	}, "|")
	return crypto.CalculateChecksum([]byte(composite))
}

// chainOfCustodyID builds the structured custody identifier: a human-legible
// prefix, a time-derived component, and a random component.
func chainOfCustodyID(captured time.Time) string {
	random := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("CODY-%s-%s", captured.UTC().Format("20060102150405"), strings.ToUpper(random))
}

func classify(itemType string) string {
	switch itemType {
	case "photo":
		return "Photographic Evidence"
	case "video":
		return "Video Evidence"
	case "audio":
		return "Audio Recording"
	case "note":
		return "Written Statement"
	default:
		return "Unclassified Evidence"
	}
}

func collectionMethod(itemType string) string {
	switch itemType {
	case "photo", "video":
		return "digital_camera_capture"
	case "audio":
		return "microphone_recording"
	case "note":
		return "manual_entry"
	default:
		return "unknown"
	}
}
