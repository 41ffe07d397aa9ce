package tags

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/deptrack/internal/model"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag     CustomTag
		wantErr bool
	}{
		{CustomTag{Tag: "@legacy"}, false},
		{CustomTag{Tag: "@to-remove", Color: "#ff8800"}, false},
		{CustomTag{Tag: "legacy"}, true},
		{CustomTag{Tag: "@"}, true},
		{CustomTag{Tag: "@two words"}, true},
		{CustomTag{Tag: "@Deprecated"}, true},
		{CustomTag{Tag: "@legacy", Color: "orange"}, true},
		{CustomTag{Tag: "@legacy", Severity: "fatal"}, true},
		{CustomTag{Tag: "@legacy", Severity: model.SeverityError}, false},
	}
	for _, tt := range tests {
		err := tt.tag.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
		}
	}
}

func TestStoreAddToggleRemove(t *testing.T) {
	t.Parallel()

	s := NewStore()
	legacy, err := s.Add("@legacy", "", "old API", "#aa0000", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if legacy.ID == "" || !legacy.Enabled || legacy.Label != "legacy" {
		t.Errorf("unexpected tag: %+v", legacy)
	}
	if _, err := s.Add("@LEGACY", "", "", "", ""); err == nil {
		t.Error("duplicate tag (case-insensitive) should be rejected")
	}
	if _, err := s.Add("@obsolete", "Obsolete", "", "", model.SeverityError); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.SetEnabled("@legacy", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	enabled := s.Enabled()
	if len(enabled) != 1 || enabled[0].Tag != "@obsolete" {
		t.Errorf("Enabled() = %+v", enabled)
	}

	legacy.Description = "renamed"
	if err := s.Update(legacy); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.List()[0]; got.Description != "renamed" || !got.Enabled {
		t.Errorf("Update did not replace the tag: %+v", got)
	}

	if err := s.Remove(legacy.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("@missing"); err == nil {
		t.Error("removing a missing tag should fail")
	}
	if n := len(s.List()); n != 1 {
		t.Errorf("expected 1 tag left, got %d", n)
	}
}

func TestOpenSaveRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := Open(root, ".deptrack")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	if _, err := s.Add("@legacy", "Legacy", "scheduled for removal", "#123456", model.SeverityInfo); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(root, ".deptrack")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if diff := cmp.Diff(s.List(), reopened.List()); diff != "" {
		t.Errorf("round trip (-saved +loaded):\n%s", diff)
	}
}
