package bytecode

import (
	"testing"

	"github.com/lumenlang/lumen/pkg/memory"
)

func TestStringPoolIntern(t *testing.T) {
	p := NewStringPool(nil)

	a := p.Intern("hello")
	b := p.Intern("hel" + "lo")
	if a != b {
		t.Error("equal strings should intern to the same canonical copy")
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
	if p.Bytes() != len("hello") {
		t.Errorf("Bytes = %d, want %d", p.Bytes(), len("hello"))
	}

	p.Intern("world")
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}
}

func TestStringPoolReset(t *testing.T) {
	p := NewStringPool(nil)
	p.Intern("a")
	p.Intern("b")
	p.Reset()
	if p.Len() != 0 || p.Bytes() != 0 {
		t.Errorf("after Reset: Len = %d Bytes = %d, want 0 0", p.Len(), p.Bytes())
	}
	// The pool is usable again after a reset.
	if got := p.Intern("a"); got != "a" {
		t.Errorf("Intern after Reset = %q", got)
	}
}

func TestStringPoolOverArena(t *testing.T) {
	arena := memory.NewArena(64)
	p := NewStringPool(arena)

	p.Intern("alpha")
	p.Intern("beta")
	if arena.Used() == 0 {
		t.Error("interning should draw storage from the arena")
	}

	p.Reset()
	if arena.Used() != 0 {
		t.Errorf("pool Reset should reset the arena, Used = %d", arena.Used())
	}
}

func TestStringPoolTracksBytes(t *testing.T) {
	track := memory.NewTrackingAllocator(nil)
	p := NewStringPool(track)

	p.Intern("four")
	p.Intern("four") // duplicate, no new allocation
	if track.Allocated() != 4 {
		t.Errorf("Allocated = %d, want 4", track.Allocated())
	}
}
