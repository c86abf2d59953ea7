package cache

import (
	"context"
	"testing"
	"time"
)

func TestKeyFrom_Stable(t *testing.T) {
	a := KeyFrom("rules-1", "text")
	if a != KeyFrom("rules-1", "text") {
		t.Fatalf("key not deterministic")
	}
	if a == KeyFrom("rules-2", "text") {
		t.Fatalf("scope must change the key")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestSectionCache_GetSave(t *testing.T) {
	t.Parallel()
	c := &SectionCache{Dir: t.TempDir()}
	ctx := context.Background()
	key := KeyFrom("rules", "FEATURES:\nLine one")
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := c.Save(ctx, key, []byte(`[{"title":"FEATURES","content":["Line one"]}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(b) != `[{"title":"FEATURES","content":["Line one"]}]` {
		t.Fatalf("unexpected payload %s", b)
	}
}

func TestSectionCache_UnconfiguredDir(t *testing.T) {
	var c *SectionCache
	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestSectionCache_PurgeAndEnforce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &SectionCache{Dir: dir}
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Save(ctx, KeyFrom("r", k), []byte("[]")); err != nil {
			t.Fatalf("save: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	removed, err := EnforceSectionCacheLimits(dir, 0, 1)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 evicted, got %d", removed)
	}
	if _, ok, _ := c.Get(ctx, KeyFrom("r", "c")); !ok {
		t.Fatalf("newest entry should survive")
	}
	time.Sleep(20 * time.Millisecond)
	n, err := PurgeSectionCacheByAge(dir, 5*time.Millisecond)
	if err != nil || n != 1 {
		t.Fatalf("purge n=%d err=%v", n, err)
	}
}
