package bus

import (
	"encoding/binary"

	"github.com/ehrlich-b/acceptord/internal/epoll"
	"github.com/ehrlich-b/acceptord/internal/usock"
)

// SubmitWire registers fn under a fresh handle and connects to the bus's
// own listening socket to deliver that handle as an 8-byte payload.
// WireServe must be running (typically via Pool.Start's caller also
// launching it in a goroutine) for the handle to ever be picked up; most
// callers want the cheaper Submit instead; SubmitWire exists for
// exercising and testing the socket-framed path end to end.
func (p *Pool) SubmitWire(fn Task) error {
	h := p.registerHandle(fn)

	client := usock.New()
	if err := client.Init(usock.Params{Path: p.path, IsServer: false}); err != nil {
		p.forgetHandle(h)
		return err
	}
	defer client.Close()
	if err := client.Connect(); err != nil {
		p.forgetHandle(h)
		return err
	}

	var payload [8]byte
	binary.LittleEndian.PutUint64(payload[:], h)
	_, err := client.Send(payload[:])
	if err != nil {
		p.forgetHandle(h)
	}
	return err
}

func (p *Pool) registerHandle(fn Task) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextH++
	h := p.nextH
	p.handles[h] = fn
	return h
}

func (p *Pool) takeHandle(h uint64) (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn, ok := p.handles[h]
	delete(p.handles, h)
	return fn, ok
}

func (p *Pool) forgetHandle(h uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handles, h)
}

// WireServe runs the epoll-driven accept/dispatch loop over the bus's
// listening socket: it accepts new wire clients, registers them with the
// poller, and on readability reads the 8-byte handle each one sends and
// resolves it back into a Task for Submit. It blocks until stop is closed
// or the poller's Wait fails.
func (p *Pool) WireServe(stop <-chan struct{}) error {
	events := make([]epoll.Event, 0, epoll.DefaultMaxEvents)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		var err error
		events, err = p.poller.Wait(events[:0], epoll.DefaultWait)
		if err != nil {
			return err
		}
		for _, ev := range events {
			v, ok := p.registry.Get(ev.Cookie)
			if !ok {
				continue
			}
			if sock, ok := v.(*usock.Socket); ok && sock == p.listener {
				p.acceptWireClient()
				continue
			}
			sock, ok := v.(*usock.Socket)
			if !ok {
				continue
			}
			p.handleWireClient(sock, ev.Cookie)
		}
	}
}

func (p *Pool) acceptWireClient() {
	client, err := p.listener.Accept()
	if err != nil {
		return
	}
	cookie := p.registry.Put(client)
	if err := p.poller.Add(client.Fd(), epoll.EventIn, cookie); err != nil {
		client.Close()
		p.registry.Delete(cookie)
	}
}

func (p *Pool) handleWireClient(sock *usock.Socket, cookie uint64) {
	var payload [8]byte
	n, err := sock.Recv(payload[:])
	if err != nil || n == 0 {
		p.poller.Del(sock.Fd())
		p.registry.Delete(cookie)
		sock.Close()
		return
	}
	h := binary.LittleEndian.Uint64(payload[:])
	if fn, ok := p.takeHandle(h); ok {
		_ = p.Submit(fn)
	}
}
