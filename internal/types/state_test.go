package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerStateTransitions(t *testing.T) {
	tests := []struct {
		from     ContainerState
		to       ContainerState
		internal bool
		want     bool
	}{
		{ContainerStateCreated, ContainerStateRunning, true, true},
		{ContainerStateCreated, ContainerStateRunning, false, false},
		{ContainerStateCreated, ContainerStateStopped, true, true},
		{ContainerStateRunning, ContainerStateStopped, false, true},
		{ContainerStateRunning, ContainerStateStopped, true, true},
		{ContainerStateRunning, ContainerStateRunning, true, false},
		{ContainerStateStopped, ContainerStateRunning, true, true},
		{ContainerStateStopped, ContainerStateRunning, false, false},
		{ContainerStateStopped, ContainerStateStopped, false, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to, tt.internal)
		assert.Equal(t, tt.want, got, "%s -> %s (internal=%v)", tt.from, tt.to, tt.internal)
	}
}
