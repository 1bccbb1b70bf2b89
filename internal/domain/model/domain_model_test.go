//go:build !integration

package model

import "testing"

func TestDownloadPayloadRoundTrip(t *testing.T) {
	a := NewArtifact("0b7c1c1e-3c55-4b8f-9a57-3f0f5d6f1b2a", 10, 10)
	got, ok := ParseDownloadPayload(a.DownloadPayload())
	if !ok || got != a.ID {
		t.Fatalf("round trip failed: ok=%v id=%q", ok, got)
	}
	if len(a.DownloadPayload()) > 64 {
		t.Fatalf("payload exceeds telegram callback limit: %d", len(a.DownloadPayload()))
	}
}

func TestParseDownloadPayload_Rejects(t *testing.T) {
	for _, in := range []string{"", "download_", "cmd:menu", "upload_abc", "Download_abc"} {
		if _, ok := ParseDownloadPayload(in); ok {
			t.Errorf("expected %q to be rejected", in)
		}
	}
}

func TestSelectLargest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, ok := SelectLargest(nil); ok {
			t.Fatal("expected no selection")
		}
	})

	t.Run("largest area wins regardless of order", func(t *testing.T) {
		vs := []PhotoVariant{
			{FileID: "m", Width: 320, Height: 320},
			{FileID: "xl", Width: 1280, Height: 1280},
			{FileID: "s", Width: 90, Height: 90},
		}
		got, ok := SelectLargest(vs)
		if !ok || got.FileID != "xl" {
			t.Fatalf("want xl, got %+v", got)
		}
	})

	t.Run("tie broken by file size then position", func(t *testing.T) {
		vs := []PhotoVariant{
			{FileID: "a", Width: 800, Height: 600, FileSize: 10},
			{FileID: "b", Width: 600, Height: 800, FileSize: 20},
			{FileID: "c", Width: 800, Height: 600, FileSize: 20},
		}
		got, _ := SelectLargest(vs)
		if got.FileID != "c" {
			t.Fatalf("want c, got %s", got.FileID)
		}
	})

	t.Run("variants without file id are skipped", func(t *testing.T) {
		got, ok := SelectLargest([]PhotoVariant{{Width: 5000, Height: 5000}, {FileID: "ok", Width: 1, Height: 1}})
		if !ok || got.FileID != "ok" {
			t.Fatalf("want ok, got %+v", got)
		}
	})
}
