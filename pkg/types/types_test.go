package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExecutionMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ExecutionMode
		wantErr bool
	}{
		{input: "", want: ModeFull},
		{input: "full", want: ModeFull},
		{input: "FORWARD_FROM_RECOVERY", want: ModeForwardFromRecovery},
		{input: "task-post", want: ModeForwardFromRecovery},
		{input: "BACKWARD_CLOSURE", want: ModeBackwardClosure},
		{input: "task-pre", want: ModeBackwardClosure},
		{input: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExecutionMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServerStatus(t *testing.T) {
	s, err := ParseServerStatus("")
	require.NoError(t, err)
	assert.Equal(t, ServerStatusNormal, s)

	s, err = ParseServerStatus("busy")
	require.NoError(t, err)
	assert.Equal(t, ServerStatusBusy, s)

	_, err = ParseServerStatus("sleepy")
	assert.Error(t, err)
}

func TestWorkerServerMetadataClone(t *testing.T) {
	md := &WorkerServerMetadata{Address: "a:1", Groups: []string{"g1"}}
	c := md.Clone()
	c.Groups[0] = "changed"

	assert.Equal(t, "g1", md.Groups[0])
	assert.True(t, md.InGroup("g1"))
	assert.False(t, md.InGroup("g2"))

	var nilMD *WorkerServerMetadata
	assert.Nil(t, nilMD.Clone())
}

func TestWorkerServerMetadataWeight(t *testing.T) {
	assert.Equal(t, DefaultWorkerWeight, (&WorkerServerMetadata{}).Weight())
	assert.Equal(t, DefaultWorkerWeight, (&WorkerServerMetadata{WorkerWeight: -3}).Weight())
	assert.Equal(t, 7, (&WorkerServerMetadata{WorkerWeight: 7}).Weight())
}

func TestTaskNodeDependsOn(t *testing.T) {
	n := TaskNode{Name: "c", PreTasks: []string{"a", "b"}}
	assert.True(t, n.DependsOn("a"))
	assert.False(t, n.DependsOn("c"))
	assert.Equal(t, "a->c", TaskNodeRelation{From: "a", To: "c"}.String())
}
