package cache

import (
	"fmt"
	"testing"
	"time"

	"pastebox/pkg/domain"
)

func testPaste(id string) *domain.Paste {
	return &domain.Paste{
		ID:        id,
		Title:     "Untitled",
		Content:   "content for " + id,
		Language:  "text",
		CreatedAt: time.Now().UTC(),
	}
}

func TestLRU_SetGet(t *testing.T) {
	c, err := NewLRU(10)
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}
	p := testPaste("abcd1234")
	c.Set(p)

	got := c.Get("abcd1234")
	if got == nil {
		t.Fatal("Get returned nil for cached paste")
	}
	if got.Content != p.Content {
		t.Errorf("Content = %q, want %q", got.Content, p.Content)
	}
}

func TestLRU_Miss(t *testing.T) {
	c, err := NewLRU(10)
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}
	if got := c.Get("00000000"); got != nil {
		t.Errorf("Get on empty cache returned %+v, want nil", got)
	}
}

func TestLRU_EvictsOldest(t *testing.T) {
	c, err := NewLRU(2)
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		c.Set(testPaste(fmt.Sprintf("paste%03d", i)))
	}
	if c.Get("paste000") != nil {
		t.Error("oldest entry survived past capacity")
	}
	if c.Get("paste002") == nil {
		t.Error("newest entry was evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_InvalidSize(t *testing.T) {
	if _, err := NewLRU(0); err == nil {
		t.Error("expected error for size 0")
	}
	if _, err := NewLRU(-5); err == nil {
		t.Error("expected error for negative size")
	}
	if _, err := NewLRU(100001); err == nil {
		t.Error("expected error for size above cap")
	}
}
