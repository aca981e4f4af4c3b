package metrics

import (
	"testing"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCollect(t *testing.T) {
	reg := registry.New()
	reg.OnServerAdded(&types.WorkerServerMetadata{Address: "a:1", Groups: []string{"etl"}, Status: types.ServerStatusNormal})
	reg.OnServerAdded(&types.WorkerServerMetadata{Address: "b:1", Groups: []string{"etl"}, Status: types.ServerStatusBusy})
	reg.OnServerAdded(&types.WorkerServerMetadata{Address: "c:1", Groups: []string{"ml"}, Status: types.ServerStatusNormal})

	c := NewCollector(reg)
	c.Collect()

	assert.Equal(t, 1.0, testutil.ToFloat64(WorkersTotal.WithLabelValues("etl", "NORMAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkersTotal.WithLabelValues("etl", "BUSY")))
	assert.Equal(t, 0.0, testutil.ToFloat64(WorkersTotal.WithLabelValues("etl", "ABNORMAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(WorkersTotal.WithLabelValues("ml", "NORMAL")))

	reg.OnServerRemove(&types.WorkerServerMetadata{Address: "c:1"})
	c.Collect()

	// the ml series is gone after the reset; 3 statuses for etl remain
	assert.Equal(t, 3, testutil.CollectAndCount(WorkersTotal))
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(registry.New())
	c.Start()
	c.Stop()
}
