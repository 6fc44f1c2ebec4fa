package bptree

import "bptreedb/pagestore"

// session tracks every visitor fetched or allocated during one public
// operation and releases them all when the operation finishes, mirroring
// the breadcrumb/unpin bookkeeping of bt2/bt.go's tx type. A session lets
// the recursive insert/erase implementation skip explicit pin/unpin
// calls at every call site while still returning every page to the
// cache's evictable set exactly once.
type session struct {
	file    *pagestore.NodeFile
	tracked []pagestore.Visitor
	settled map[pagestore.Visitor]bool
}

func newSession(file *pagestore.NodeFile) *session {
	return &session{file: file}
}

func (s *session) get(index int64) (pagestore.Visitor, error) {
	v, err := s.file.Get(index)
	if err != nil {
		return nil, err
	}
	s.tracked = append(s.tracked, v)
	return v, nil
}

func (s *session) allocate() (pagestore.Visitor, error) {
	v, err := s.file.Allocate()
	if err != nil {
		return nil, err
	}
	s.tracked = append(s.tracked, v)
	return v, nil
}

func (s *session) recycle(v pagestore.Visitor) {
	s.file.Recycle(v)
	s.markSettled(v)
}

// release lets the caller give up a visitor early, before the session
// ends — used by Iterator to drop the leaf it just finished with as soon
// as it advances onto the next one, instead of holding every leaf it has
// ever visited until Close.
func (s *session) release(v pagestore.Visitor) {
	v.Release()
	s.markSettled(v)
}

func (s *session) markSettled(v pagestore.Visitor) {
	if s.settled == nil {
		s.settled = make(map[pagestore.Visitor]bool)
	}
	s.settled[v] = true
}

// finish releases every tracked visitor that wasn't already settled
// (recycled or released early) along the way. Safe to call even if the
// session never fetched anything.
func (s *session) finish() {
	for _, v := range s.tracked {
		if s.settled != nil && s.settled[v] {
			continue
		}
		v.Release()
	}
}
