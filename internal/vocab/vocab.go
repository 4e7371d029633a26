// Package vocab interns surface strings to dense ids. Feature functions
// that declare a vocabulary index each own one Table inside a shared Index.
package vocab

import "sync"

// Unknown is the id of every word a table has not seen.
const Unknown uint32 = 0

// Table maps strings to dense ids starting at 1.
type Table struct {
	mu    sync.RWMutex
	ids   map[string]uint32
	words []string
}

func NewTable() *Table {
	return &Table{
		ids:   make(map[string]uint32),
		words: []string{""},
	}
}

// Add interns word and returns its id.
func (t *Table) Add(word string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[word]; ok {
		return id
	}
	id := uint32(len(t.words))
	t.ids[word] = id
	t.words = append(t.words, word)
	return id
}

// ID returns the id of word, or Unknown.
func (t *Table) ID(word string) uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids[word]
}

// Word returns the string for id, or "" when id is out of range.
func (t *Table) Word(id uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.words) {
		return ""
	}
	return t.words[id]
}

// Size is the number of interned words, excluding Unknown.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.words) - 1
}

// Index holds one table per vocab-indexed feature function.
type Index struct {
	tables []*Table
}

// NewIndex creates n empty tables.
func NewIndex(n int) *Index {
	idx := &Index{tables: make([]*Table, n)}
	for i := range idx.tables {
		idx.tables[i] = NewTable()
	}
	return idx
}

// Table returns the table for vocab index i.
func (x *Index) Table(i int) *Table { return x.tables[i] }

func (x *Index) Len() int { return len(x.tables) }
