package cache

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	inputs := map[string]string{
		"article_text": "Exercise reduces cardiovascular risk.",
		"style":        "plain",
	}

	first := Fingerprint("summarize", inputs)
	second := Fingerprint("summarize", inputs)
	if first != second {
		t.Errorf("Fingerprint() not deterministic: %q != %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64 hex chars", len(first))
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := map[string]string{"url": "https://pubmed.ncbi.nlm.nih.gov/123", "lang": "en"}
	b := map[string]string{"lang": "en", "url": "https://pubmed.ncbi.nlm.nih.gov/123"}

	if Fingerprint("fetch_article", a) != Fingerprint("fetch_article", b) {
		t.Error("Fingerprint() should not depend on map construction order")
	}
}

func TestFingerprint_Distinguishes(t *testing.T) {
	base := map[string]string{"article_text": "text"}

	tests := []struct {
		name   string
		stage  string
		inputs map[string]string
	}{
		{"different stage", "explain_terminology", base},
		{"different value", "summarize", map[string]string{"article_text": "other text"}},
		{"different key", "summarize", map[string]string{"body": "text"}},
		{"extra input", "summarize", map[string]string{"article_text": "text", "lang": "en"}},
		{"no inputs", "summarize", nil},
	}

	ref := Fingerprint("summarize", base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.stage, tt.inputs); got == ref {
				t.Errorf("Fingerprint() collided with reference for %s", tt.name)
			}
		})
	}
}
