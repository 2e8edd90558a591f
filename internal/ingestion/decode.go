package ingestion

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Fulvio75/fpdb/internal/core/storage"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Batch is the content of one record file.
type Batch struct {
	Hands     []storage.HandRecord     `json:"hands" yaml:"hands"`
	Summaries []storage.TourneySummary `json:"summaries" yaml:"summaries"`
}

// Decoder reads a record file.
type Decoder interface {
	Decode(r io.Reader) (Batch, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(r io.Reader) (Batch, error)

func (f DecoderFunc) Decode(r io.Reader) (Batch, error) { return f(r) }

// FormatRegistry maps file extensions to decoders.
type FormatRegistry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewFormatRegistry returns a registry with the JSONL and YAML decoders.
func NewFormatRegistry() *FormatRegistry {
	r := &FormatRegistry{decoders: make(map[string]Decoder)}
	r.Register(DecoderFunc(DecodeJSONL), ".jsonl", ".ndjson")
	r.Register(DecoderFunc(DecodeYAML), ".yaml", ".yml")
	return r
}

// Register binds d to the given extensions, replacing earlier bindings.
func (r *FormatRegistry) Register(d Decoder, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.decoders[strings.ToLower(ext)] = d
	}
}

// ForPath returns the decoder for the extension of path.
func (r *FormatRegistry) ForPath(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported record file format: %q", ext)
	}
	return d, nil
}

// Supports reports whether path has a registered extension.
func (r *FormatRegistry) Supports(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// envelope is one JSONL line: exactly one of the fields is set.
type envelope struct {
	Hand    *storage.HandRecord     `json:"hand,omitempty"`
	Summary *storage.TourneySummary `json:"summary,omitempty"`
}

const maxLineBytes = 4 * 1024 * 1024

// DecodeJSONL reads one envelope per line. Blank lines are skipped.
func DecodeJSONL(r io.Reader) (Batch, error) {
	var b Batch
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return b, fmt.Errorf("line %d: %w", line, err)
		}
		switch {
		case env.Hand != nil && env.Summary != nil:
			return b, fmt.Errorf("line %d: both hand and summary set", line)
		case env.Hand != nil:
			b.Hands = append(b.Hands, *env.Hand)
		case env.Summary != nil:
			b.Summaries = append(b.Summaries, *env.Summary)
		default:
			return b, fmt.Errorf("line %d: neither hand nor summary set", line)
		}
	}
	if err := sc.Err(); err != nil {
		return b, fmt.Errorf("read records: %w", err)
	}
	return b, nil
}

// DecodeYAML reads a document with top-level hands and summaries lists.
func DecodeYAML(r io.Reader) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&b); err != nil && err != io.EOF {
		return Batch{}, fmt.Errorf("decode yaml records: %w", err)
	}
	return b, nil
}
