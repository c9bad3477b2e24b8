package system

import (
	"image"
	"sync"
)

// CanvasPool переиспользует *image.RGBA одного размера между рендерами карточек,
// чтобы не гонять сборщик мусора на полноразмерных кадрах.
type CanvasPool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewCanvasPool() *CanvasPool {
	return &CanvasPool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var defaultCanvases = NewCanvasPool()

// GetCanvas returns a canvas of the given bounds. Its contents are undefined.
func GetCanvas(rect image.Rectangle) *image.RGBA {
	return defaultCanvases.Get(rect)
}

// PutCanvas hands a canvas back for reuse.
func PutCanvas(img *image.RGBA) {
	defaultCanvases.Put(img)
}

func (p *CanvasPool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, ok := p.pools[rect]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[rect]
		if !ok {
			pool = &sync.Pool{
				New: func() any { return image.NewRGBA(rect) },
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *CanvasPool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
