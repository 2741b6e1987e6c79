// Package storage implements the paged heap files that hold table rows,
// and the table manager that ties a heap, its header and its indexes
// together.
package storage

import (
	"os"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/elerspay/DBMS/common"
)

type frame struct {
	buf   []byte
	dirty bool
}

// Pager caches fixed-size pages of one file. Statement execution is
// sequential, so the pager does no latching; the frame table reuses the
// concurrent map for its cheap resize behavior.
type Pager struct {
	file      *os.File
	frames    *xsync.MapOf[int32, *frame]
	pageCount int32
	capacity  int
	cached    int
}

// OpenPager opens (or creates) a page file. capacity caps the number of
// resident frames; 0 means unbounded.
func OpenPager(path string, capacity int) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, common.WrapIO("open page file", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, common.WrapIO("stat page file", err)
	}
	return &Pager{
		file:      f,
		frames:    xsync.NewMapOf[int32, *frame](),
		pageCount: int32(st.Size() / common.PageSize),
		capacity:  capacity,
	}, nil
}

// PageCount reports the number of pages in the file.
func (p *Pager) PageCount() int32 { return p.pageCount }

// Page returns the contents of page n, reading it into the cache if
// necessary. The returned slice aliases the cached frame; callers that
// modify it must call MarkDirty.
func (p *Pager) Page(n int32) ([]byte, error) {
	if n < 0 || n >= p.pageCount {
		return nil, common.Errorf(common.Internal, "page %d out of range (%d pages)", n, p.pageCount)
	}
	if fr, ok := p.frames.Load(n); ok {
		return fr.buf, nil
	}

	if err := p.evictFor(n); err != nil {
		return nil, err
	}
	buf := make([]byte, common.PageSize)
	if _, err := p.file.ReadAt(buf, int64(n)*common.PageSize); err != nil {
		return nil, common.WrapIO("read page", err)
	}
	p.frames.Store(n, &frame{buf: buf})
	p.cached++
	return buf, nil
}

// MarkDirty records that page n was modified and must be written back.
func (p *Pager) MarkDirty(n int32) {
	fr, ok := p.frames.Load(n)
	common.Assert(ok, "MarkDirty on unresident page %d", n)
	fr.dirty = true
}

// Allocate appends a zeroed page and returns its number and contents.
func (p *Pager) Allocate() (int32, []byte, error) {
	if err := p.evictFor(p.pageCount); err != nil {
		return 0, nil, err
	}
	n := p.pageCount
	buf := make([]byte, common.PageSize)
	if _, err := p.file.WriteAt(buf, int64(n)*common.PageSize); err != nil {
		return 0, nil, common.WrapIO("extend page file", err)
	}
	p.pageCount++
	p.frames.Store(n, &frame{buf: buf, dirty: true})
	p.cached++
	return n, buf, nil
}

// evictFor makes room for one more frame when the cache is at capacity.
// Any frame other than the incoming page is a valid victim; dirty victims
// are written back first.
func (p *Pager) evictFor(incoming int32) error {
	if p.capacity <= 0 || p.cached < p.capacity {
		return nil
	}
	var victim int32 = -1
	var vf *frame
	p.frames.Range(func(n int32, fr *frame) bool {
		if n == incoming {
			return true
		}
		victim, vf = n, fr
		return false
	})
	if vf == nil {
		return nil
	}
	if vf.dirty {
		if _, err := p.file.WriteAt(vf.buf, int64(victim)*common.PageSize); err != nil {
			return common.WrapIO("write back page", err)
		}
	}
	p.frames.Delete(victim)
	p.cached--
	return nil
}

// Flush writes every dirty frame back to the file.
func (p *Pager) Flush() error {
	var failed error
	p.frames.Range(func(n int32, fr *frame) bool {
		if !fr.dirty {
			return true
		}
		if _, err := p.file.WriteAt(fr.buf, int64(n)*common.PageSize); err != nil {
			failed = common.WrapIO("write back page", err)
			return false
		}
		fr.dirty = false
		return true
	})
	if failed != nil {
		return failed
	}
	return common.WrapIO("sync page file", p.file.Sync())
}

// Close flushes and releases the file.
func (p *Pager) Close() error {
	if err := p.Flush(); err != nil {
		p.file.Close()
		return err
	}
	return common.WrapIO("close page file", p.file.Close())
}
