package diffs

import (
    "fmt"

    lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a Store bounded to the most recently used frames. A streaming
// render only revisits a sliding window of frames, so evicted entries are
// rarely needed again and are recomputed when they are.
type Cache struct {
    BlocksX int
    BlocksY int

    size int
    lru  *lru.Cache[int, []int32]
}

// NewCache keeps up to size frames of a blocksX×blocksY grid.
func NewCache(blocksX, blocksY, size int) (*Cache, error) {
    l, err := lru.New[int, []int32](size)
    if err != nil { return nil, fmt.Errorf("diffs: cache of %d frames: %w", size, err) }
    return &Cache{BlocksX: blocksX, BlocksY: blocksY, size: size, lru: l}, nil
}

func (c *Cache) Get(n int) ([]int32, bool) { return c.lru.Get(n) }

// Put stores the diffs of frame n, evicting the least recently used frame
// when full.
func (c *Cache) Put(n int, d []int32) error {
    if err := checkGeometry(c.BlocksX, c.BlocksY, n, d); err != nil { return err }
    c.lru.Add(n, d)
    return nil
}

func (c *Cache) Len() int  { return c.lru.Len() }
func (c *Cache) Size() int { return c.size }
