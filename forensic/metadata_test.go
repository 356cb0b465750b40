package forensic

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Ch4lkP0wd3r/CalcPro/internal/crypto"
)

var testDevice = DeviceInfo{
	Brand:     "google",
	Model:     "Pixel 8",
	OSName:    "android",
	OSVersion: "14",
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestBuildStampsRecord(t *testing.T) {
	builder := NewBuilderWithClock(testDevice, fixedClock())

	meta := builder.Build("photo", "item-1", Extras{})

	if meta.CaptureTime != "2024-03-15T10:30:00Z" {
		t.Errorf("unexpected capture time %q", meta.CaptureTime)
	}
	if meta.CaptureEpochMs != 1710498600000 {
		t.Errorf("unexpected epoch ms %d", meta.CaptureEpochMs)
	}
	if meta.Device != testDevice {
		t.Errorf("device not carried through: %+v", meta.Device)
	}
	if !meta.IsOriginal || meta.HasBeenModified {
		t.Errorf("origin flags wrong: original=%v modified=%v", meta.IsOriginal, meta.HasBeenModified)
	}
}

func TestIntegrityHashComposite(t *testing.T) {
	clock := fixedClock()
	builder := NewBuilderWithClock(testDevice, clock)

	meta := builder.Build("photo", "item-1", Extras{})

	composite := strings.Join([]string{
		"photo",
		clock().Format(time.RFC3339),
		testDevice.Model,
		"item-1",
	}, "|")
	want := crypto.CalculateChecksum([]byte(composite))

	if meta.IntegrityHash != want {
		t.Errorf("integrity hash = %q, want %q", meta.IntegrityHash, want)
	}

	// Different item id, different hash
	other := builder.Build("photo", "item-2", Extras{})
	if other.IntegrityHash == meta.IntegrityHash {
		t.Error("integrity hash does not depend on item id")
	}
}

func TestChainOfCustodyIDFormat(t *testing.T) {
	builder := NewBuilderWithClock(testDevice, fixedClock())

	pattern := regexp.MustCompile(`^CODY-20240315103000-[0-9A-F]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		meta := builder.Build("note", "n", Extras{})
		if !pattern.MatchString(meta.ChainOfCustodyID) {
			t.Fatalf("custody id %q does not match expected format", meta.ChainOfCustodyID)
		}
		if seen[meta.ChainOfCustodyID] {
			t.Fatalf("custody id %q repeated", meta.ChainOfCustodyID)
		}
		seen[meta.ChainOfCustodyID] = true
	}
}

func TestClassificationByType(t *testing.T) {
	builder := NewBuilder(testDevice)

	cases := []struct {
		itemType       string
		classification string
		method         string
	}{
		{"photo", "Photographic Evidence", "digital_camera_capture"},
		{"video", "Video Evidence", "digital_camera_capture"},
		{"audio", "Audio Recording", "microphone_recording"},
		{"note", "Written Statement", "manual_entry"},
	}

	for _, tc := range cases {
		meta := builder.Build(tc.itemType, "x", Extras{})
		if meta.EvidenceClassification != tc.classification {
			t.Errorf("%s: classification = %q, want %q", tc.itemType, meta.EvidenceClassification, tc.classification)
		}
		if meta.CollectionMethod != tc.method {
			t.Errorf("%s: collection method = %q, want %q", tc.itemType, meta.CollectionMethod, tc.method)
		}
	}
}

func TestExtrasCarriedThrough(t *testing.T) {
	builder := NewBuilder(testDevice)

	gps := &GPSFix{Latitude: 52.52, Longitude: 13.405, Accuracy: 4.5}
	media := &MediaAttributes{FileSize: 2048, MimeType: "image/jpeg", Resolution: "4032x3024"}

	meta := builder.Build("photo", "p", Extras{
		GPS:           gps,
		Media:         media,
		ContentSHA256: "abc123",
		Tags:          []string{"case-42"},
	})

	if meta.GPS == nil || meta.GPS.Latitude != 52.52 {
		t.Errorf("gps not carried: %+v", meta.GPS)
	}
	if meta.Media == nil || meta.Media.MimeType != "image/jpeg" {
		t.Errorf("media not carried: %+v", meta.Media)
	}
	if meta.ContentHash != "abc123" {
		t.Errorf("content hash = %q", meta.ContentHash)
	}

	wantTags := []string{"case-42", "evidence", "photo"}
	if len(meta.Tags) != len(wantTags) {
		t.Fatalf("tags = %v, want %v", meta.Tags, wantTags)
	}
	for i := range wantTags {
		if meta.Tags[i] != wantTags[i] {
			t.Fatalf("tags = %v, want %v", meta.Tags, wantTags)
		}
	}

	// A record without extras omits them
	bare := builder.Build("note", "n", Extras{})
	if bare.GPS != nil || bare.Media != nil || bare.ContentHash != "" {
		t.Error("bare record carries optional fields")
	}
}
