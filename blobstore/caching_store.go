package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lexis/internal/cache"
)

// DefaultBlockSize is the cache granularity used when none is given.
const DefaultBlockSize = 64 * 1024

type blockKey struct {
	name  string
	block int64
}

// CachingStore wraps a Store and caches blob content in fixed-size blocks.
// Remote stores answer every ReadAt with a round trip; the cache turns
// repeated loads of the same query or filter file into memory reads.
type CachingStore struct {
	inner     Store
	cache     *cache.LRU[blockKey, []byte]
	blockSize int64
}

// NewCachingStore creates a CachingStore holding at most capacity bytes.
// blockSize defaults to DefaultBlockSize if <= 0.
func NewCachingStore(inner Store, capacity, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     cache.NewLRU[blockKey, []byte](capacity, nil),
		blockSize: blockSize,
	}
}

// Stats returns the cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) { return s.cache.Stats() }

// Open opens a blob whose reads go through the block cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		ctx:   ctx,
		inner: b,
		store: s,
		name:  name,
	}, nil
}

// Put writes through and drops the cached blocks of name.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob and drops its cached blocks.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is passed through uncached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key blockKey) bool { return key.name == name })
}

type cachingBlob struct {
	ctx   context.Context
	inner Blob
	store *CachingStore
	name  string
}

func (b *cachingBlob) Close() error { return b.inner.Close() }
func (b *cachingBlob) Size() int64  { return b.inner.Size() }

func (b *cachingBlob) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}

	bs := b.store.blockSize
	end := min(off+int64(len(p)), b.Size())
	startBlock, endBlock := off/bs, (end-1)/bs

	blocks, err := b.blocks(startBlock, endBlock)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, data := range blocks {
		blkStart := (startBlock + int64(i)) * bs
		from := max(off, blkStart) - blkStart
		to := min(end, blkStart+int64(len(data))) - blkStart
		if to > from {
			n += copy(p[n:], data[from:to])
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// blocks returns the blocks [start, end], fetching contiguous runs of
// missing blocks with one backend read each.
func (b *cachingBlob) blocks(start, end int64) ([][]byte, error) {
	out := make([][]byte, end-start+1)

	type run struct{ start, count int64 }
	var missing []run
	for blk := start; blk <= end; blk++ {
		if data, ok := b.store.cache.Get(blockKey{b.name, blk}); ok {
			out[blk-start] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{blk, 1})
		}
	}

	g, _ := errgroup.WithContext(b.ctx)
	g.SetLimit(8)
	for _, r := range missing {
		g.Go(func() error {
			bs := b.store.blockSize
			off := r.start * bs
			buf := make([]byte, min(r.count*bs, b.Size()-off))
			n, err := b.inner.ReadAt(buf, off)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			for i := range r.count {
				lo := min(i*bs, int64(len(buf)))
				hi := min(lo+bs, int64(len(buf)))
				block := buf[lo:hi:hi]
				b.store.cache.Set(blockKey{b.name, r.start + i}, block, int64(len(block)))
				out[r.start+i-start] = block
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
