package bytecode

import "github.com/lumenlang/lumen/pkg/memory"

// StringPool interns strings the VM builds at run time, so repeated
// concatenations of the same text share storage and compare cheaply. The
// backing bytes come from the pool's allocator; Reset returns them all at
// once.
type StringPool struct {
	alloc   memory.Allocator
	entries map[string]string
	bytes   int
}

// NewStringPool returns a pool over alloc, defaulting to the system
// allocator when nil.
func NewStringPool(alloc memory.Allocator) *StringPool {
	if alloc == nil {
		alloc = memory.SystemAllocator{}
	}
	return &StringPool{alloc: alloc, entries: make(map[string]string)}
}

// Intern returns the canonical copy of s, storing one on first sight.
func (p *StringPool) Intern(s string) string {
	if canonical, ok := p.entries[s]; ok {
		return canonical
	}
	buf := p.alloc.Allocate(len(s))
	copy(buf, s)
	canonical := string(buf)
	p.entries[canonical] = canonical
	p.bytes += len(s)
	return canonical
}

// Len returns the number of interned strings.
func (p *StringPool) Len() int { return len(p.entries) }

// Bytes returns the total interned payload size.
func (p *StringPool) Bytes() int { return p.bytes }

// Reset drops every entry and releases the backing storage.
func (p *StringPool) Reset() {
	p.entries = make(map[string]string)
	p.bytes = 0
	p.alloc.Reset()
}
