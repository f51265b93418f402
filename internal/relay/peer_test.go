package relay

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var errPeerGone = errors.New("peer gone")

type fakePeer struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closes int
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func newFakePeers(n int) []*fakePeer {
	peers := make([]*fakePeer, n)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("peer-%d", i))
	}
	return peers
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errPeerGone
	}
	p.frames = append(p.frames, frame)
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
}

func (p *fakePeer) received() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.frames...)
}

func (p *fakePeer) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *fakePeer) setFailing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = true
}

func ids(seq iter.Seq[Peer]) []string {
	var out []string
	for p := range seq {
		out = append(out, p.ID())
	}
	return out
}
