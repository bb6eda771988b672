package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAppendHistoryDoesNotAlias(t *testing.T) {
	base := make(StatusHistory, 1, 4)
	base[0] = HistoryEntry{Status: "submitted", UpdatedBy: 1}

	a := AppendHistory(base, HistoryEntry{Status: "in_progress", UpdatedBy: 2})
	b := AppendHistory(base, HistoryEntry{Status: "rejected", UpdatedBy: 3})

	if len(base) != 1 {
		t.Fatalf("append modified receiver: %v", base)
	}
	if a[1].Status != "in_progress" || b[1].Status != "rejected" {
		t.Fatalf("appends share backing storage: a=%v b=%v", a, b)
	}
}

func TestStatusHistoryRoundTripThroughColumn(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := StatusHistory{{Status: "reported", Timestamp: ts, UpdatedBy: 7, Note: "call received"}}

	v, err := h.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var raw []byte
	switch col := v.(type) {
	case []byte:
		raw = col
	case string:
		raw = []byte(col)
	default:
		t.Fatalf("unexpected column value %T", v)
	}

	for _, col := range []interface{}{raw, string(raw)} {
		var got StatusHistory
		if err := got.Scan(col); err != nil {
			t.Fatalf("scan %T: %v", col, err)
		}
		last, ok := LastEntry(got)
		if !ok || last.Status != "reported" || !last.Timestamp.Equal(ts) || last.Note != "call received" {
			t.Fatalf("unexpected history after scan: %+v", got)
		}
	}
}

func TestLastEntryOfEmptyHistory(t *testing.T) {
	if _, ok := LastEntry(nil); ok {
		t.Fatalf("empty history has no last entry")
	}
}

func TestAttachmentsStoreEmptyKindsAsArrays(t *testing.T) {
	a := NewAttachments(Media{Images: []string{"a.jpg"}})
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"images":["a.jpg"],"videos":[],"audio":[]}` {
		t.Fatalf("unexpected json %s", b)
	}

	var back Attachments
	if err := back.Scan(string(b)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m := back.Data(); m.Empty() || m.Images[0] != "a.jpg" {
		t.Fatalf("unexpected media: %+v", m)
	}
	if !NewAttachments(Media{}).Data().Empty() {
		t.Fatalf("no files means empty media")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"citizen", "officer", "admin"} {
		if _, err := ParseRole(s); err != nil {
			t.Fatalf("ParseRole(%q): %v", s, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
