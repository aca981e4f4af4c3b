package balancer

import (
	"math/rand/v2"

	"github.com/cuemby/burrow/pkg/registry"
)

// Random picks uniformly among the live workers of a group
type Random struct {
	registry *registry.Registry
}

// NewRandom creates a random balancer
func NewRandom(reg *registry.Registry) *Random {
	return &Random{registry: reg}
}

func (b *Random) Select(group string) (string, bool) {
	return b.SelectExcluding(group, "")
}

func (b *Random) SelectExcluding(group, exclude string) (string, bool) {
	addrs := without(b.registry.GetNormalWorkerServerAddressByGroup(group), exclude)
	if len(addrs) == 0 {
		record(TypeRandom, false)
		return "", false
	}
	record(TypeRandom, true)
	return addrs[rand.IntN(len(addrs))], true
}

func (b *Random) Type() Type { return TypeRandom }

func (b *Random) Close() error { return nil }
