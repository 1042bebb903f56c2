// Package store provides storage for definitions documents and their
// evaluation history, in memory with optional bbolt persistence.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/lemonberrylabs/nil-layout/pkg/types"
)

// MaxEvaluationsPerDefinition caps the evaluation history kept per definition;
// the oldest entries are dropped first.
const MaxEvaluationsPerDefinition = 100

var definitionsBucket = []byte("definitions")

// Sentinel errors, wrapped with the offending name.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Definition represents a stored definitions document.
type Definition struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
	Source      string    `json:"sourceContents"`
}

// Evaluation records one expression evaluated against a definition.
type Evaluation struct {
	Name       string           `json:"name"`
	Definition string           `json:"definition"`
	RevisionID string           `json:"definitionRevisionId"`
	Source     string           `json:"source"`
	Result     string           `json:"result,omitempty"`
	Kind       string           `json:"kind,omitempty"`
	Error      *EvaluationError `json:"error,omitempty"`
	CreateTime time.Time        `json:"createTime"`
}

// EvaluationError represents the error of a failed evaluation.
type EvaluationError struct {
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message"`
	Position *int   `json:"position,omitempty"`
}

// Store is a thread-safe storage for definitions and evaluations.
type Store struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
	evaluations map[string][]*Evaluation

	// Counter for generating revision IDs
	revCounter int64

	db *bolt.DB // nil for a purely in-memory store
}

// New creates a new empty in-memory store.
func New() *Store {
	return &Store{
		definitions: make(map[string]*Definition),
		evaluations: make(map[string][]*Evaluation),
	}
}

// Open creates a store backed by the bbolt database at path. Existing
// definitions are loaded, and every change is written through.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	s := New()
	s.db = db
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(definitionsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var def Definition
			if err := json.Unmarshal(v, &def); err != nil {
				return fmt.Errorf("decoding definition %q: %w", k, err)
			}
			s.definitions[def.Name] = &def
			if n := revisionNumber(def.RevisionID); n > s.revCounter {
				s.revCounter = n
			}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Persistent reports whether the store writes through to disk.
func (s *Store) Persistent() bool {
	return s.db != nil
}

func revisionNumber(id string) int64 {
	head, _, _ := strings.Cut(id, "-")
	n, _ := strconv.ParseInt(head, 10, 64)
	return n
}

func (s *Store) nextRevision() string {
	s.revCounter++
	return fmt.Sprintf("%06d-000", s.revCounter)
}

// persist writes def to disk. Callers hold s.mu.
func (s *Store) persist(def *Definition) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(definitionsBucket).Put([]byte(def.Name), data)
	})
}

// CreateDefinition stores a new definitions document under name.
func (s *Store) CreateDefinition(name, source, description string) (*Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.definitions[name]; exists {
		return nil, fmt.Errorf("definition '%s' %w", name, ErrAlreadyExists)
	}

	now := time.Now()
	def := &Definition{
		Name:        name,
		Description: description,
		RevisionID:  s.nextRevision(),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
	}
	if err := s.persist(def); err != nil {
		return nil, fmt.Errorf("persisting definition '%s': %w", name, err)
	}
	s.definitions[name] = def
	cp := *def
	return &cp, nil
}

// GetDefinition retrieves a definition by name.
func (s *Store) GetDefinition(name string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[name]
	if !ok {
		return nil, fmt.Errorf("definition '%s' %w", name, ErrNotFound)
	}
	cp := *def
	return &cp, nil
}

// ListDefinitions returns all definitions sorted by name.
func (s *Store) ListDefinitions() []*Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		cp := *def
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateDefinition replaces a definition's source. An empty description
// keeps the current one.
func (s *Store) UpdateDefinition(name, source, description string) (*Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[name]
	if !ok {
		return nil, fmt.Errorf("definition '%s' %w", name, ErrNotFound)
	}

	updated := *def
	updated.Source = source
	if description != "" {
		updated.Description = description
	}
	updated.RevisionID = s.nextRevision()
	updated.UpdateTime = time.Now()

	if err := s.persist(&updated); err != nil {
		return nil, fmt.Errorf("persisting definition '%s': %w", name, err)
	}
	*def = updated
	return &updated, nil
}

// DeleteDefinition removes a definition and its evaluation history.
func (s *Store) DeleteDefinition(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[name]; !ok {
		return fmt.Errorf("definition '%s' %w", name, ErrNotFound)
	}
	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(definitionsBucket).Delete([]byte(name))
		})
		if err != nil {
			return fmt.Errorf("deleting definition '%s': %w", name, err)
		}
	}
	delete(s.definitions, name)
	delete(s.evaluations, name)
	return nil
}

// RecordEvaluation appends the outcome of evaluating source against the
// named definition. Exactly one of result and evalErr is meaningful.
func (s *Store) RecordEvaluation(name, source string, result types.Value, evalErr error) (*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[name]
	if !ok {
		return nil, fmt.Errorf("definition '%s' %w", name, ErrNotFound)
	}

	ev := &Evaluation{
		Name:       fmt.Sprintf("definitions/%s/evaluations/%s", name, uuid.NewString()),
		Definition: name,
		RevisionID: def.RevisionID,
		Source:     source,
		CreateTime: time.Now(),
	}
	if evalErr != nil {
		ev.Error = NewEvaluationError(evalErr)
	} else {
		b, err := result.MarshalJSON()
		if err != nil {
			return nil, err
		}
		ev.Result = string(b)
		ev.Kind = result.Type().String()
	}

	history := append(s.evaluations[name], ev)
	if len(history) > MaxEvaluationsPerDefinition {
		// Copy so the dropped entries are not pinned by the backing array.
		trimmed := make([]*Evaluation, MaxEvaluationsPerDefinition)
		copy(trimmed, history[len(history)-MaxEvaluationsPerDefinition:])
		history = trimmed
	}
	s.evaluations[name] = history
	return ev, nil
}

// ListEvaluations returns the evaluation history of a definition, oldest
// first.
func (s *Store) ListEvaluations(name string) ([]*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.definitions[name]; !ok {
		return nil, fmt.Errorf("definition '%s' %w", name, ErrNotFound)
	}
	history := s.evaluations[name]
	result := make([]*Evaluation, len(history))
	copy(result, history)
	return result, nil
}

// NewEvaluationError converts an error into its stored form, keeping the
// kind and position of core errors.
func NewEvaluationError(err error) *EvaluationError {
	out := &EvaluationError{Message: err.Error()}
	if te, ok := types.AsError(err); ok {
		out.Kind = string(te.Kind)
		if te.Pos != types.NoPos {
			pos := te.Pos
			out.Position = &pos
		}
	}
	return out
}
