package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// NotFound is the sentinel value of a field no extractor could fill
const NotFound = "Not found"

// Results maps human-readable field names to their extracted values.
// Fields keep the order in which they were first set.
type Results struct {
	order  []string
	fields map[string][]string
}

// NewResults creates an empty result map
func NewResults() *Results {
	return &Results{fields: make(map[string][]string)}
}

// Set stores values for field, replacing earlier values in place
func (r *Results) Set(field string, values ...string) {
	if r.fields == nil {
		r.fields = make(map[string][]string)
	}
	if _, exists := r.fields[field]; !exists {
		r.order = append(r.order, field)
	}
	r.fields[field] = values
}

// SetOrNotFound stores values, or the NotFound sentinel when values is empty
func (r *Results) SetOrNotFound(field string, values []string) {
	if len(values) == 0 {
		r.Set(field, NotFound)
		return
	}
	r.Set(field, values...)
}

// Get returns the values of field
func (r *Results) Get(field string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.fields[field]
	return v, ok
}

// First returns the first value of field or ""
func (r *Results) First(field string) string {
	v, _ := r.Get(field)
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Found reports whether field holds at least one real value
func (r *Results) Found(field string) bool {
	v, _ := r.Get(field)
	return len(v) > 0 && v[0] != NotFound
}

// Fields returns the field names in insertion order
func (r *Results) Fields() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of fields
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Merge copies every field of other into r; later values win
func (r *Results) Merge(other *Results) {
	if other == nil {
		return
	}
	for _, f := range other.order {
		r.Set(f, other.fields[f]...)
	}
}

// MarshalJSON encodes the fields as an ordered JSON object
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f)
		vals, err := json.Marshal(r.fields[f])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the fields as an ordered YAML mapping
func (r *Results) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r.Fields() {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, v := range r.fields[f] {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f}, seq)
	}
	return node, nil
}

// LogSink receives human-readable diagnostics produced during one analysis
type LogSink interface {
	Add(message string)
}

// Logf formats a message into sink; a nil sink discards it
func Logf(sink LogSink, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Add(fmt.Sprintf(format, args...))
}

// LogSet is a concurrency-safe, deduplicating, insertion-ordered LogSink
type LogSet struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	messages []string
}

// NewLogSet creates an empty log set
func NewLogSet() *LogSet {
	return &LogSet{seen: make(map[string]struct{})}
}

// Add records message unless it was already recorded
func (l *LogSet) Add(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[message]; dup {
		return
	}
	l.seen[message] = struct{}{}
	l.messages = append(l.messages, message)
}

// Messages returns a snapshot of the recorded messages
func (l *LogSet) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of distinct messages
func (l *LogSet) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Contains reports whether message was recorded
func (l *LogSet) Contains(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[message]
	return ok
}
