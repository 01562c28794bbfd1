package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"bbkbilling/backend/internal/domain"
	"bbkbilling/backend/internal/store"
)

// document is the on-disk shape of the catalog configuration. It must
// round-trip load -> save -> load unchanged modulo key ordering.
type document struct {
	Items        []string                   `json:"items"`
	DisplayNames map[string]string          `json:"display_names"`
	Rates        map[string]decimal.Decimal `json:"rates"`
	Shortcuts    map[string]string          `json:"shortcuts"`
}

// Store holds the sellable items, their display names and current unit
// rates, and the shortcut-key bindings. Every mutation durably rewrites the
// backing document before returning success.
type Store struct {
	mu           sync.RWMutex
	path         string
	items        []string
	displayNames map[string]string
	rates        map[string]decimal.Decimal
	shortcuts    map[string]string
}

// Load reads the catalog document at path. A missing document is seeded with
// the default item set and saved immediately.
func Load(path string) (*Store, error) {
	s := &Store{
		path:         path,
		items:        make([]string, 0, 8),
		displayNames: make(map[string]string),
		rates:        make(map[string]decimal.Decimal),
		shortcuts:    make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		s.seedDefaults()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	s.items = append(s.items, doc.Items...)
	for name, label := range doc.DisplayNames {
		s.displayNames[name] = label
	}
	for name, rate := range doc.Rates {
		s.rates[name] = rate
	}
	for key, name := range doc.Shortcuts {
		s.shortcuts[key] = name
	}
	return s, nil
}

func (s *Store) seedDefaults() {
	s.items = []string{"Soya Oil", "Palm Oil"}
	s.displayNames = map[string]string{"Soya Oil": "Soya Oil", "Palm Oil": "Palm Oil"}
	s.rates = map[string]decimal.Decimal{"Soya Oil": decimal.Zero, "Palm Oil": decimal.Zero}
	s.shortcuts = map[string]string{"1": "Soya Oil", "2": "Palm Oil"}
}

// AddItem registers a new item under a shortcut key. The item starts with a
// zero rate and its name as display name.
func (s *Store) AddItem(name string, shortcut string) error {
	name = strings.TrimSpace(name)
	shortcut = strings.TrimSpace(shortcut)
	if name == "" {
		return fmt.Errorf("%w: item name cannot be empty", store.ErrInvalidInput)
	}
	if !isDigits(shortcut) {
		return fmt.Errorf("%w: shortcut %q must be a number", store.ErrInvalidInput, shortcut)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rates[name]; exists {
		return fmt.Errorf("%w: item %q already exists", store.ErrDuplicateKey, name)
	}
	if bound, exists := s.shortcuts[shortcut]; exists {
		return fmt.Errorf("%w: shortcut %q is already bound to %q", store.ErrDuplicateKey, shortcut, bound)
	}

	s.items = append(s.items, name)
	s.displayNames[name] = name
	s.rates[name] = decimal.Zero
	s.shortcuts[shortcut] = name

	if err := s.save(); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			return err
		}
		s.removeLocked(name)
		return err
	}
	return nil
}

// RemoveItem deletes an item and releases its shortcut binding. Historical
// invoice records keep their captured description and rate.
func (s *Store) RemoveItem(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rates[name]; !exists {
		return fmt.Errorf("%w: item %q", store.ErrNotFound, name)
	}

	prevRate := s.rates[name]
	prevLabel := s.displayNames[name]
	prevShortcut := ""
	for key, bound := range s.shortcuts {
		if bound == name {
			prevShortcut = key
			break
		}
	}
	prevIndex := -1
	for i, existing := range s.items {
		if existing == name {
			prevIndex = i
			break
		}
	}

	s.removeLocked(name)

	if err := s.save(); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			return err
		}
		s.insertItemLocked(name, prevIndex)
		s.displayNames[name] = prevLabel
		s.rates[name] = prevRate
		if prevShortcut != "" {
			s.shortcuts[prevShortcut] = name
		}
		return err
	}
	return nil
}

// insertItemLocked restores an item at its original catalog position.
func (s *Store) insertItemLocked(name string, index int) {
	if index < 0 || index > len(s.items) {
		s.items = append(s.items, name)
		return
	}
	s.items = append(s.items, "")
	copy(s.items[index+1:], s.items[index:])
	s.items[index] = name
}

func (s *Store) removeLocked(name string) {
	for i, existing := range s.items {
		if existing == name {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.displayNames, name)
	delete(s.rates, name)
	for key, bound := range s.shortcuts {
		if bound == name {
			delete(s.shortcuts, key)
		}
	}
}

// SetRate updates an item's unit rate. Non-numeric or negative input fails
// with ErrInvalidInput and leaves the prior rate untouched.
func (s *Store) SetRate(name string, rate string) error {
	parsed, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return fmt.Errorf("%w: rate %q is not a number", store.ErrInvalidInput, rate)
	}
	if parsed.IsNegative() {
		return fmt.Errorf("%w: rate %q must not be negative", store.ErrInvalidInput, rate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.rates[name]
	if !exists {
		return fmt.Errorf("%w: item %q", store.ErrNotFound, name)
	}
	s.rates[name] = parsed

	if err := s.save(); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			return err
		}
		s.rates[name] = prev
		return err
	}
	return nil
}

// Get returns one catalog item by name.
func (s *Store) Get(name string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, exists := s.rates[name]
	if !exists {
		return domain.Item{}, fmt.Errorf("%w: item %q", store.ErrNotFound, name)
	}
	return s.itemLocked(name, rate), nil
}

// List returns all items in catalog order.
func (s *Store) List() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.items))
	for _, name := range s.items {
		items = append(items, s.itemLocked(name, s.rates[name]))
	}
	return items
}

func (s *Store) itemLocked(name string, rate decimal.Decimal) domain.Item {
	item := domain.Item{Name: name, DisplayName: s.displayNames[name], UnitRate: rate}
	if item.DisplayName == "" {
		item.DisplayName = name
	}
	for key, bound := range s.shortcuts {
		if bound == name {
			item.Shortcut = key
			break
		}
	}
	return item
}

// Resolve maps a shortcut key to its item name. This is the single dispatch
// point for keyboard-driven entry; rebinding on catalog change is a rebuild
// of the table, not a rewire of handlers.
func (s *Store) Resolve(shortcut string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, exists := s.shortcuts[shortcut]
	if !exists {
		return "", fmt.Errorf("%w: shortcut %q", store.ErrNotFound, shortcut)
	}
	return name, nil
}

// DisplayName returns the label for an item name, falling back to the raw
// name for items no longer in the catalog.
func (s *Store) DisplayName(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if label, exists := s.displayNames[name]; exists && label != "" {
		return label
	}
	return name
}

// Shortcuts returns the key-to-item table sorted by key.
func (s *Store) Shortcuts() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.shortcuts))
	for key := range s.shortcuts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]domain.Item, 0, len(keys))
	for _, key := range keys {
		name := s.shortcuts[key]
		items = append(items, s.itemLocked(name, s.rates[name]))
	}
	return items
}

// save rewrites the backing document atomically: the new content lands in a
// temp file in the same directory and is renamed over the old document, so a
// failed write never leaves a partial document visible.
func (s *Store) save() error {
	doc := document{
		Items:        s.items,
		DisplayNames: s.displayNames,
		Rates:        s.rates,
		Shortcuts:    s.shortcuts,
	}
	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return saveError(s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return saveError(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return saveError(s.path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return saveError(s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return saveError(s.path, err)
	}
	return nil
}

// saveError distinguishes permission problems, which keep the in-memory
// mutation so the caller can continue working, from other storage failures.
func saveError(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: catalog %s is not writable: %v", store.ErrPermissionDenied, path, err)
	}
	return fmt.Errorf("save catalog %s: %w", path, err)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
