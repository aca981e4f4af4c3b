/*
Package definition parses workflow and cluster definition files.

Both kinds share the resource envelope used across burrow tooling:

	apiVersion: burrow/v1
	kind: Workflow
	metadata:
	  name: nightly-etl
	spec:
	  tasks:
	    - name: extract
	      workerGroup: etl
	    - name: load
	      preTasks: [extract]
	      workerGroup: db

A Cluster lists worker group allowlists and workers known ahead of time.
Apply loads them into a registry. Static workers carry no heartbeat time, so
the reconciler never evicts them:

	apiVersion: burrow/v1
	kind: Cluster
	metadata:
	  name: local
	spec:
	  groups:
	    - name: db
	      addresses: [10.0.0.3:1234]
	  workers:
	    - address: 10.0.0.1:1234
	      groups: [etl]
	      cpu: 0.2
	      weight: 150

Unknown envelope keys are rejected. Validation failures wrap
ErrInvalidDefinition. Dependency cycles are not checked here; the graph
resolver rejects them when a run is resolved.
*/
package definition
