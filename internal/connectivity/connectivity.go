// Package connectivity answers whether the network is currently reachable.
// Guards are queried at call time and never cache their answer.
package connectivity

import (
	"net"
	"sync/atomic"
	"time"
)

// Guard reports network reachability. IsReachable is called on a worker
// before every request and must not retry or poll.
type Guard interface {
	IsReachable() bool
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func() bool

// IsReachable calls f.
func (f GuardFunc) IsReachable() bool { return f() }

// Always is a guard that always reports the network as reachable.
var Always Guard = GuardFunc(func() bool { return true })

// Static is a guard whose answer is set by the platform layer, typically
// from a connectivity-change broadcast.
type Static struct {
	reachable atomic.Bool
}

// NewStatic creates a guard with the given initial state.
func NewStatic(reachable bool) *Static {
	s := &Static{}
	s.reachable.Store(reachable)
	return s
}

// Set updates the reachability state.
func (s *Static) Set(reachable bool) {
	s.reachable.Store(reachable)
}

// IsReachable returns the last value passed to Set.
func (s *Static) IsReachable() bool {
	return s.reachable.Load()
}

// DialProbe reports the network as reachable when a TCP connection to
// Address can be opened within Timeout.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

// NewDialProbe creates a probe against address (host:port).
func NewDialProbe(address string, timeout time.Duration) *DialProbe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DialProbe{Address: address, Timeout: timeout}
}

// IsReachable opens and immediately closes a connection to the probe address.
func (p *DialProbe) IsReachable() bool {
	conn, err := net.DialTimeout("tcp", p.Address, p.Timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
