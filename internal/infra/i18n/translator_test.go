//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	contentBytes := []byte("greeting: Hallo\nwelcome_user: Hallo %s")

	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		got := translator.T("greeting")
		want := "Hallo"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		got := translator.T("nonexistent_key")
		want := "nonexistent_key"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("welcome_user", "Ali")
		want := "Hallo Ali"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestEmbeddedEnglishCatalogue(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	keys := []string{
		KeyStart, KeyHelp, KeyNotImage, KeyProcessing, KeyProcessingFailed,
		KeyPreviewCaption, KeyDownloadButton, KeyDocumentCaption, KeyNotAvailable, KeyRateLimited,
	}
	for _, k := range keys {
		if tr.T(k) == k {
			t.Errorf("key %q missing from en.yaml", k)
		}
	}
	if got := tr.T(KeyDownloadButton); got != "Download Image" {
		t.Errorf("download button label = %q", got)
	}
	if got := tr.T(KeyStart, "Edit By Kishan Soni"); !strings.Contains(got, "'Edit By Kishan Soni'") {
		t.Errorf("start message missing watermark text: %q", got)
	}
}

func TestNewTranslator_MissingLanguage(t *testing.T) {
	fsys := fstest.MapFS{"locales/en.yaml": {Data: []byte("a: b")}}
	if _, err := NewTranslator(fsys, "fa"); err == nil {
		t.Fatal("expected error for missing language file")
	}
	tr, err := NewTranslator(fsys, "en")
	if err != nil || tr.T("a") != "b" {
		t.Fatalf("map fs load failed: %v", err)
	}
}
