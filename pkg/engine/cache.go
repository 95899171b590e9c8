package engine

import (
	"context"
	"sync"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

// FrameCache serves single-frame requests from one retained decoder. A
// request for a frame after the last decoded one continues forward from the
// current position; anything else reopens the decoder.
type FrameCache struct {
	engine  *Engine
	factory ports.DecoderFactory
	info    ports.StreamInfo

	mu   sync.Mutex
	dec  ports.Decoder
	last int64
}

// NewFrameCache creates a cache over decoders from factory.
func NewFrameCache(e *Engine, factory ports.DecoderFactory, info ports.StreamInfo) *FrameCache {
	return &FrameCache{engine: e, factory: factory, info: info, last: -1}
}

// Frame decodes and returns frame index.
func (c *FrameCache) Frame(ctx context.Context, index int64) (FrameRecord, error) {
	if index < 0 || index >= c.info.FrameCount {
		return FrameRecord{}, &mediaerr.FrameError{Index: index, FrameCount: c.info.FrameCount}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dec != nil && index <= c.last {
		c.engine.logger.Debug("Frame %d is behind cached position %d, reopening decoder", index, c.last)
		c.resetLocked()
	}

	needSeek := c.dec == nil || index-c.last > c.engine.opts.GapThreshold
	if c.dec == nil {
		dec, err := c.factory.OpenDecoder()
		if err != nil {
			return FrameRecord{}, err
		}
		c.dec = dec
	}
	if needSeek {
		if err := c.engine.seek(c.dec, c.info, index); err != nil {
			c.resetLocked()
			return FrameRecord{}, err
		}
	}

	var out FrameRecord
	last, err := c.engine.decodeForward(ctx, c.dec, c.info, []int64{index}, nil, func(r FrameRecord) error {
		out = r
		return nil
	})
	if err != nil {
		c.resetLocked()
		return FrameRecord{}, err
	}
	c.last = last
	if out.Pix == nil {
		return FrameRecord{}, &mediaerr.DecodeError{FrameIndex: index}
	}
	return out, nil
}

// Close releases the retained decoder.
func (c *FrameCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked()
}

func (c *FrameCache) resetLocked() error {
	var err error
	if c.dec != nil {
		err = c.dec.Close()
		c.dec = nil
	}
	c.last = -1
	return err
}
