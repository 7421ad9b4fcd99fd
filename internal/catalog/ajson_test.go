package catalog

import "testing"

func TestParseAJSON_SourcesAndBlocks(t *testing.T) {
	data := []byte(`"smart_sources:UPSC/A.md": {"path":"UPSC/A.md","embeddings":{"bge":{"vec":[1,0]}}},
"smart_blocks:UPSC/A.md#Intro": {"embeddings":{"bge":{"vec":[0,1]}}},
"other_collection:x": {"path":"x"},
`)
	entries, skipped := parseAJSON(data)
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Kind != kindSource || entries[0].Path != "UPSC/A.md" {
		t.Errorf("source entry = %+v", entries[0])
	}
	if entries[1].Kind != kindBlock || entries[1].Path != "UPSC/A.md" || entries[1].Key != "UPSC/A.md#Intro" {
		t.Errorf("block entry = %+v", entries[1])
	}
	if len(entries[0].Embeddings) != 1 || entries[0].Embeddings[0].Model != "bge" {
		t.Errorf("embeddings = %+v", entries[0].Embeddings)
	}
}

func TestParseAJSON_LaterLinesOverride(t *testing.T) {
	data := []byte(`"smart_sources:A.md": {"path":"A.md","embeddings":{"m":{"vec":[1,0]}}},
"smart_sources:B.md": {"path":"B.md","embeddings":{"m":{"vec":[1,1]}}},
"smart_sources:A.md": {"path":"A.md","embeddings":{"m":{"vec":[0,1]}}},
"smart_sources:B.md": null,
`)
	entries, _ := parseAJSON(data)
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	got := entries[0].Embeddings[0].Vec
	if entries[0].Path != "A.md" || got[0] != 0 || got[1] != 1 {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestParseAJSON_SkipsMalformedLines(t *testing.T) {
	data := []byte(`"smart_sources:A.md": {"path":"A.md"},
"smart_sources:B.md": {"path":
`)
	entries, skipped := parseAJSON(data)
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(entries) != 1 || entries[0].Path != "A.md" || len(entries[0].Embeddings) != 0 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParseAJSON_PathFallsBackToKey(t *testing.T) {
	entries, _ := parseAJSON([]byte(`"smart_sources:Notes/C.md": {"embeddings":{}}`))
	if len(entries) != 1 || entries[0].Path != "Notes/C.md" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		`"UPSC\GS2\A.md"`: "UPSC/GS2/A.md",
		"  'A.md' ":       "A.md",
		"plain.md":        "plain.md",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
