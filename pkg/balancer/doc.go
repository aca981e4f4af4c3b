/*
Package balancer selects the worker that runs a dispatched task.

Every strategy implements LoadBalancer and answers Select(group) with the
address of a NORMAL worker in that group, or false when the group has none.
An empty answer is not an error: the caller holds the task and asks again
later.

# Strategies

	RANDOM                        uniform over the live set
	ROUND_ROBIN                   per-group atomic counter mod live set size
	FIXED_WEIGHTED_ROUND_ROBIN    smooth WRR over operator-set worker weights
	DYNAMIC_WEIGHTED_ROUND_ROBIN  smooth WRR over load-derived weights

The strategy is chosen once from configuration:

	lb, err := balancer.New(balancer.Config{
		Type:    balancer.TypeDynamicWeightedRoundRobin,
		Dynamic: balancer.DynamicWeights{CPU: 30, Memory: 40, Queue: 30},
	}, reg)
	if err != nil {
		return err // invalid type or weights, fatal at startup
	}
	defer lb.Close()

	addr, ok := lb.Select("etl")

# Smooth Weighted Round Robin

Both weighted strategies keep a per-worker accumulator. Each step advances
the group's shared index, adds the visited worker's weight to its
accumulator, and selects it once the accumulator reaches the sum of live
weights, taking that sum back off:

	weights 1,2,3  (total 6)

	visit   w1  w2  w3  w1  w2  w3  w1 ...
	acc      1   2   3   2   4   6   3
	                             ^ w3 selected, acc 6 -> 0

Over k*total selections each worker is picked exactly k*weight times and
picks are interleaved rather than bunched. The add-compare-subtract step
runs under the worker's own mutex.

Weights live in a cache fed by a registry listener, so the cache may lag
the registry for a moment. Addresses the registry returns but the cache
does not know yet are skipped.

Fixed weights come from WorkerServerMetadata.WorkerWeight when a worker is
added (100 when unset) and stay put on updates. Dynamic weights are
recomputed on every add and update:

	weight = 100 - (cpu*cpuWeight + memory*memoryWeight + queue*queueWeight) / 3

cpuWeight, memoryWeight and queueWeight must each be >= 0 and sum to 100.
*/
package balancer
