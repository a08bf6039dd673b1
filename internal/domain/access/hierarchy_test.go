package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPointResolver_ResolveHierarchy(t *testing.T) {
	ctx := context.Background()
	r := NewFixedPointResolver(testChart())

	tests := []struct {
		name string
		user int64
		want []int64
	}{
		{"root includes every descendant", 1, []int64{1, 2, 3, 4, 5}},
		{"middle manager", 2, []int64{2, 3, 4, 5}},
		{"leaf is a singleton", 3, []int64{3}},
		{"separate tree", 6, []int64{6, 7}},
		{"unknown user is a singleton", 999, []int64{999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveHierarchy(ctx, tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixedPointResolver_TerminatesOnCycle(t *testing.T) {
	// 10 -> 11 -> 12 -> 10
	chart := orgChart{10: 12, 11: 10, 12: 11, 13: 12}
	r := NewFixedPointResolver(chart)

	got, err := r.ResolveHierarchy(context.Background(), 11)

	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12, 13}, got)
}

func TestFixedPointResolver_SelfManaged(t *testing.T) {
	r := NewFixedPointResolver(orgChart{5: 5})

	got, err := r.ResolveHierarchy(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, []int64{5}, got)
}

func TestFixedPointResolver_PropagatesError(t *testing.T) {
	r := NewFixedPointResolver(failingLister{})

	_, err := r.ResolveHierarchy(context.Background(), 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInHierarchy(t *testing.T) {
	h := []int64{2, 3, 4, 5}
	assert.True(t, InHierarchy(h, 2))
	assert.True(t, InHierarchy(h, 5))
	assert.False(t, InHierarchy(h, 1))
	assert.False(t, InHierarchy(nil, 1))
}
