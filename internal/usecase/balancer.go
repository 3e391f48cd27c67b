package usecase

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
)

// Balancer strategies
const (
	BalanceRoundRobin = "round_robin"
	BalanceRandom     = "random"
)

var ErrNoServers = errors.New("no scraper servers configured")

// ServerBalancer picks the scraper server for the next call
type ServerBalancer interface {
	Next() string
}

// RoundRobinBalancer cycles through servers in order. Safe for concurrent use.
type RoundRobinBalancer struct {
	servers []string
	next    atomic.Uint64
}

func NewRoundRobinBalancer(servers []string) *RoundRobinBalancer {
	return &RoundRobinBalancer{servers: servers}
}

func (b *RoundRobinBalancer) Next() string {
	n := b.next.Add(1) - 1
	return b.servers[n%uint64(len(b.servers))]
}

// RandomBalancer picks a uniformly random server
type RandomBalancer struct {
	servers []string
}

func NewRandomBalancer(servers []string) *RandomBalancer {
	return &RandomBalancer{servers: servers}
}

func (b *RandomBalancer) Next() string {
	return b.servers[rand.Intn(len(b.servers))]
}

// NewServerBalancer builds the balancer named by strategy. Empty means round robin.
func NewServerBalancer(strategy string, servers []string) (ServerBalancer, error) {
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	switch strategy {
	case "", BalanceRoundRobin:
		return NewRoundRobinBalancer(servers), nil
	case BalanceRandom:
		return NewRandomBalancer(servers), nil
	default:
		return nil, fmt.Errorf("unknown load balancer %q", strategy)
	}
}
