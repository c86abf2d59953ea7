package segment

import (
	"context"
	"encoding/json"

	"github.com/hyperifyio/docsections/internal/cache"
)

// DiskMemo keeps segmentation results in an on-disk SectionCache. Read and
// write failures degrade to a cache miss.
type DiskMemo struct {
	Cache *cache.SectionCache
}

func (m DiskMemo) Load(key string) ([]Section, bool) {
	if m.Cache == nil {
		return nil, false
	}
	b, ok, err := m.Cache.Get(context.Background(), key)
	if err != nil || !ok {
		return nil, false
	}
	var secs []Section
	if err := json.Unmarshal(b, &secs); err != nil {
		return nil, false
	}
	return secs, true
}

func (m DiskMemo) Store(key string, sections []Section) {
	if m.Cache == nil {
		return
	}
	b, err := json.Marshal(sections)
	if err != nil {
		return
	}
	_ = m.Cache.Save(context.Background(), key, b)
}
