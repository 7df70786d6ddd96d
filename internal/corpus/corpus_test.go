package corpus

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileLoaderFormats(t *testing.T) {
	dir := t.TempDir()
	want := []string{"the quick brown fox", "the lazy dog", "quick brown"}
	tests := []struct {
		name string
		file string
		body string
	}{
		{"text lines", "corpus.txt", "the quick brown fox\n\n  the lazy dog  \nquick brown\n"},
		{"yaml list", "list.yaml", "- the quick brown fox\n- the lazy dog\n- quick brown\n"},
		{"yaml mapping", "set.yml", "documents:\n  - the quick brown fox\n  - the lazy dog\n  - quick brown\n"},
		{"json list", "list.json", `["the quick brown fox", "the lazy dog", "quick brown"]`},
		{"jsonc mapping", "set.jsonc", "{\n  // animals\n  \"documents\": [\"the quick brown fox\", \"the lazy dog\", \"quick brown\",]\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, dir, tt.file, tt.body)
			docs, err := NewFileLoader(path).Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if !reflect.DeepEqual(docs, want) {
				t.Errorf("docs = %q, want %q", docs, want)
			}
		})
	}
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFileLoader(filepath.Join(dir, "missing.txt")).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
	path := write(t, dir, "corpus.csv", "a,b")
	if _, err := NewFileLoader(path).Load(context.Background()); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("csv error = %v", err)
	}
	path = write(t, dir, "scalar.yaml", "just a string")
	if _, err := NewFileLoader(path).Load(context.Background()); err == nil {
		t.Error("expected error for scalar yaml corpus")
	}
}

func TestFileLoaderDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b.md", "# Goroutines\n\nLightweight *threads* managed by the `runtime`.\n")
	write(t, dir, "a.txt", "  plain text document \n")
	write(t, dir, "ignored.yaml", "- not loaded")
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	docs, err := NewFileLoader(dir).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %q, want 2 entries", docs)
	}
	if docs[0] != "plain text document" {
		t.Errorf("docs[0] = %q", docs[0])
	}
	for _, word := range []string{"Goroutines", "threads", "runtime"} {
		if !strings.Contains(docs[1], word) {
			t.Errorf("markdown doc %q missing %q", docs[1], word)
		}
	}
	if strings.ContainsAny(docs[1], "#*`") {
		t.Errorf("markdown markup leaked: %q", docs[1])
	}
}

func TestMarkdownSections(t *testing.T) {
	src := []byte("Intro paragraph.\n\n# Channels\n\nTyped conduits.\n\n## Select\n\nWaits on several channels.\n\n```go\nselect {}\n```\n")
	got := MarkdownSections(src)
	if len(got) != 3 {
		t.Fatalf("sections = %q, want 3", got)
	}
	if got[0] != "Intro paragraph." {
		t.Errorf("section 0 = %q", got[0])
	}
	if !strings.HasPrefix(got[1], "Channels") || !strings.Contains(got[1], "Typed conduits.") {
		t.Errorf("section 1 = %q", got[1])
	}
	if !strings.Contains(got[2], "select {}") {
		t.Errorf("code block dropped from section 2: %q", got[2])
	}
}

func TestStaticCopies(t *testing.T) {
	src := []string{"a", "b"}
	docs, _ := Static(src).Load(context.Background())
	docs[0] = "changed"
	if src[0] != "a" {
		t.Error("Static should not alias its input")
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := FromConfig(config.CorpusConfig{Source: "postgres", Table: "t", Column: "c"}, nil); err == nil {
		t.Error("postgres without a connection should fail")
	}
	if _, err := FromConfig(config.CorpusConfig{Source: "s3"}, nil); err == nil {
		t.Error("unknown source should fail")
	}
	path := write(t, t.TempDir(), "c.txt", "one\ntwo\n")
	l, err := FromConfig(config.CorpusConfig{Source: "file", Path: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	docs, err := l.Load(context.Background())
	if err != nil || len(docs) != 2 {
		t.Errorf("docs = %q, err = %v", docs, err)
	}
}
