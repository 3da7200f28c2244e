package vm

import (
	"strings"
	"sync"
)

type fieldKey struct {
	tag  uint32
	name string
}

// FieldMap assigns each distinct field-name set a stable small integer
// tag the first time it is seen, and records each field's storage
// offset under that tag. Record field access then compiles to a single
// indexed load instead of a name lookup at run time.
//
// Once assigned, a tag's layout is immutable and the same field set maps
// to the same tag for the life of the process.
type FieldMap struct {
	mu      sync.Mutex
	tags    map[string]uint32
	offsets map[fieldKey]int
	fields  map[uint32][]string
}

func NewFieldMap() *FieldMap {
	return &FieldMap{
		tags:    make(map[string]uint32),
		offsets: make(map[fieldKey]int),
		fields:  make(map[uint32][]string),
	}
}

// Tag returns the tag for a field-name set, assigning one on first use.
// Field order determines storage offsets, so callers must pass fields
// in the canonical (sorted) order they construct records with.
func (fm *FieldMap) Tag(fields []string) uint32 {
	key := strings.Join(fields, "\x00")
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if tag, ok := fm.tags[key]; ok {
		return tag
	}
	tag := uint32(len(fm.tags))
	fm.tags[key] = tag
	owned := append([]string{}, fields...)
	fm.fields[tag] = owned
	for offset, name := range owned {
		fm.offsets[fieldKey{tag: tag, name: name}] = offset
	}
	return tag
}

// Offset returns the storage offset of a field within records of the
// given tag.
func (fm *FieldMap) Offset(tag uint32, name string) (int, bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	off, ok := fm.offsets[fieldKey{tag: tag, name: name}]
	return off, ok
}

// Fields returns the field names of a tag in storage order.
func (fm *FieldMap) Fields(tag uint32) ([]string, bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fields, ok := fm.fields[tag]
	return fields, ok
}
