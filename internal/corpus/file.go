package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileLoader reads a corpus from disk. The format follows the extension:
//
//	.txt           one document per non-blank line
//	.yaml, .yml    a list of strings, or a mapping with a "documents" list
//	.json, .jsonc  the same shapes as YAML; comments are allowed
//	.md            one document per heading-delimited section
//
// A directory yields one document per .txt or .md file, ordered by name.
type FileLoader struct {
	path   string
	logger *slog.Logger
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		path:   path,
		logger: slog.Default().With("component", "corpus-loader", "source", "file"),
	}
}

type documentSet struct {
	Documents []string `yaml:"documents" json:"documents"`
}

func (l *FileLoader) Load(ctx context.Context) ([]string, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", l.path, err)
	}
	var docs []string
	if info.IsDir() {
		docs, err = l.loadDir(ctx)
	} else {
		docs, err = loadFile(l.path)
	}
	if err != nil {
		return nil, err
	}
	l.logger.Info("corpus loaded", "path", l.path, "documents", len(docs))
	return docs, nil
}

func (l *FileLoader) loadDir(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.path)
	if err != nil {
		return nil, fmt.Errorf("listing corpus directory %s: %w", l.path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md", ".markdown":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]string, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(l.path, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if isMarkdown(name) {
			docs = append(docs, MarkdownText(data))
		} else {
			docs = append(docs, strings.TrimSpace(string(data)))
		}
	}
	return docs, nil
}

func loadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".txt":
		return splitLines(data)
	case ext == ".yaml" || ext == ".yml":
		return decodeYAML(data)
	case ext == ".json" || ext == ".jsonc":
		return decodeJSON(jsonc.ToJSON(data))
	case isMarkdown(path):
		return MarkdownSections(data), nil
	default:
		return nil, fmt.Errorf("unsupported corpus file extension %q", ext)
	}
}

func splitLines(data []byte) ([]string, error) {
	var docs []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		docs = append(docs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning corpus lines: %w", err)
	}
	return docs, nil
}

func decodeYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing yaml corpus: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var docs []string
		if err := root.Decode(&docs); err != nil {
			return nil, fmt.Errorf("decoding yaml document list: %w", err)
		}
		return docs, nil
	case yaml.MappingNode:
		var set documentSet
		if err := root.Decode(&set); err != nil {
			return nil, fmt.Errorf("decoding yaml documents: %w", err)
		}
		return set.Documents, nil
	default:
		return nil, fmt.Errorf("yaml corpus must be a list or a mapping with documents")
	}
}

func decodeJSON(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var docs []string
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("decoding json document list: %w", err)
		}
		return docs, nil
	}
	var set documentSet
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return nil, fmt.Errorf("decoding json documents: %w", err)
	}
	return set.Documents, nil
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
