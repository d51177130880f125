package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/models"
)

// Document is the whole contents of the data file.
type Document struct {
	Resources map[string][]models.Record

	// extra holds top-level keys that are not record arrays. They are
	// written back untouched so hand edits survive.
	extra map[string]json.RawMessage

	// merged lists lowercased names that more than one key in the file
	// folded into.
	merged []string
}

func NewDocument() *Document {
	return &Document{
		Resources: map[string][]models.Record{},
		extra:     map[string]json.RawMessage{},
	}
}

// Names returns the resource names in sorted order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Resources))
	for name := range d.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("document must be a JSON object")
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Resource names are case-insensitive: keys are folded to lower case and
	// records of colliding keys are appended in key order.
	doc := NewDocument()
	for _, key := range keys {
		value := raw[key]
		records, err := decodeRecords(value)
		if err != nil {
			doc.extra[key] = value
			continue
		}
		name := strings.ToLower(key)
		if existing, ok := doc.Resources[name]; ok {
			doc.Resources[name] = append(existing, records...)
			doc.merged = append(doc.merged, name)
			continue
		}
		doc.Resources[name] = records
	}
	*d = *doc
	return nil
}

// HasExtra reports whether name matches, ignoring case, a top-level key that
// does not hold records.
func (d *Document) HasExtra(name string) bool {
	for key := range d.extra {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Resources)+len(d.extra))
	for key, value := range d.extra {
		out[key] = value
	}
	for key, records := range d.Resources {
		if records == nil {
			records = []models.Record{}
		}
		out[key] = records
	}
	return json.Marshal(out)
}

func decodeRecords(value json.RawMessage) ([]models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var records []models.Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errors.New("not an array")
	}
	for _, r := range records {
		if r == nil {
			return nil, errors.New("array element is not an object")
		}
	}
	return records, nil
}

// Store persists a Document to a single JSON file. Every call re-reads the
// file; the mutex serialises read-modify-write cycles within this process.
type Store struct {
	path   string
	logger *logger.Logger
	mu     sync.Mutex
}

func New(path string, log *logger.Logger) *Store {
	return &Store{
		path:   path,
		logger: log,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the data file. A missing, empty or corrupt file yields an
// empty document.
func (s *Store) Load() *Document {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(err.Error(), "Could not read data file, starting empty")
		}
		return NewDocument()
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return NewDocument()
	}

	doc := NewDocument()
	if err := json.Unmarshal(b, doc); err != nil {
		s.logger.Warn(err.Error(), "Data file is not valid JSON, starting empty")
		return NewDocument()
	}
	for _, name := range doc.merged {
		s.logger.Warn("Keys differing only in case were merged into "+name, "Resource names are case-insensitive")
	}
	return doc
}

// Save overwrites the data file with the pretty-printed document.
func (s *Store) Save(doc *Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	if err := os.WriteFile(s.path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

// View loads the document under the store lock and hands it to fn.
func (s *Store) View(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.Load())
}

// Update runs load, fn and save as one critical section. fn reports whether
// it changed the document; nothing is written when it did not or when it
// returned an error.
func (s *Store) Update(fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load()
	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Save(doc)
}
