package balancer

import (
	"github.com/cuemby/burrow/pkg/registry"
)

// RoundRobin cycles through the live workers of a group. The live set is
// read on every call, so membership may change between selections.
type RoundRobin struct {
	registry *registry.Registry
	indexes  counters
}

// NewRoundRobin creates a round robin balancer
func NewRoundRobin(reg *registry.Registry) *RoundRobin {
	return &RoundRobin{registry: reg}
}

func (b *RoundRobin) Select(group string) (string, bool) {
	return b.SelectExcluding(group, "")
}

func (b *RoundRobin) SelectExcluding(group, exclude string) (string, bool) {
	addrs := without(b.registry.GetNormalWorkerServerAddressByGroup(group), exclude)
	if len(addrs) == 0 {
		record(TypeRoundRobin, false)
		return "", false
	}

	index := b.indexes.next(group) % uint64(len(addrs))
	record(TypeRoundRobin, true)
	return addrs[index], true
}

func (b *RoundRobin) Type() Type { return TypeRoundRobin }

func (b *RoundRobin) Close() error { return nil }
