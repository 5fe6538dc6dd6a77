package scoreboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/karlseguin/ccache/v2"
)

const keyPrefix = "scores:"

// Document is an encoded scoreboard with its entity tag.
type Document struct {
	LastUpdate time.Time
	ETag       string
	Body       []byte
}

// Publisher caches the encoded document of a Source until it expires or is invalidated.
type Publisher struct {
	src        Source
	cache      *ccache.Cache
	generation atomic.Uint64
	ttl        time.Duration
}

// NewPublisher creates a Publisher. A ttl of zero disables caching.
func NewPublisher(src Source, ttl time.Duration) *Publisher {
	return &Publisher{
		src:   src,
		ttl:   ttl,
		cache: ccache.New(ccache.Configure().MaxSize(16).ItemsToPrune(4)),
	}
}

// Document returns the current encoded scoreboard.
func (p *Publisher) Document(ctx context.Context) (*Document, error) {
	if p.ttl <= 0 {
		return p.build(ctx)
	}

	key := keyPrefix + strconv.FormatUint(p.generation.Load(), 10)
	item, err := p.cache.Fetch(key, p.ttl, func() (interface{}, error) {
		return p.build(ctx)
	})
	if err != nil {
		return nil, err
	}

	return item.Value().(*Document), nil
}

// Invalidate drops the cached document. Documents still being built for an older generation
// are never served.
func (p *Publisher) Invalidate() {
	p.generation.Add(1)
	p.cache.DeletePrefix(keyPrefix)
}

// Close stops the cache worker.
func (p *Publisher) Close() {
	p.cache.Stop()
}

func (p *Publisher) build(ctx context.Context) (*Document, error) {
	data, err := p.src.ScoreData(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode scoreboard: %w", err)
	}

	return &Document{
		Body:       body,
		ETag:       fmt.Sprintf(`"%016x"`, xxhash.Sum64(body)),
		LastUpdate: data.LastUpdate,
	}, nil
}
