/*
Package events distributes scheduler events to in-process observers.

The Broker is a simple channel fan-out. Publishers hand events to a
buffered intake channel; a single goroutine copies each event to every
subscriber's buffered channel and skips subscribers that are full. Delivery
is best effort and meant for observers such as the CLI progress output,
never for control flow.

	┌───────────┐   Publish   ┌──────────┐  broadcast  ┌─────────────┐
	│ scheduler │ ──────────► │ eventCh  │ ──────────► │ subscriber  │
	│ reconciler│             │ (100)    │             │ chan (50)   │
	└───────────┘             └──────────┘             └─────────────┘

# Event Types

	workflow.started     run accepted, graph resolved
	workflow.completed   every runnable node finished
	workflow.failed      a node failed permanently
	workflow.empty       resolution produced nothing to execute
	task.dispatched      node handed to a worker
	task.completed       worker reported success
	task.failed          one attempt failed
	task.skipped         forbidden node bypassed
	worker.evicted       heartbeat timeout removed a worker

Metadata carries string fields such as run_id, task, worker_address and
attempt.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for evt := range sub {
			fmt.Println(evt.Type, evt.Metadata["task"])
		}
	}()

A nil *Broker accepts Publish calls and drops them, so components can take
an optional broker without nil checks.
*/
package events
