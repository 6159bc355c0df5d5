package set_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/set"
)

func TestNew(t *testing.T) {
	s := set.New[int]()
	assert.NotNil(t, s)
	assert.Empty(t, s.Values())

	s = set.New(1, 1, 2)
	assert.Equal(t, 2, s.Len())
}

func TestSet_Append(t *testing.T) {
	s := set.New[string]()
	s.Append("cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*")
	s.Append("cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*")
	assert.Equal(t, 1, s.Len())
}

func TestSet_Merge(t *testing.T) {
	s := set.New("a", "b")
	s.Merge(set.New("b", "c"))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, s.Values())
}

func TestSet_Contains(t *testing.T) {
	s := set.New("foo", "bar")
	assert.True(t, s.Contains("foo"))
	assert.True(t, s.Contains("bar"))
	assert.False(t, s.Contains("baz"))
}

func TestSet_Equal(t *testing.T) {
	tests := []struct {
		name  string
		left  set.Set[string]
		right set.Set[string]
		want  bool
	}{
		{
			name:  "same members",
			left:  set.New("a", "b"),
			right: set.New("b", "a"),
			want:  true,
		},
		{
			name:  "different size",
			left:  set.New("a"),
			right: set.New("a", "b"),
		},
		{
			name:  "different members",
			left:  set.New("a", "c"),
			right: set.New("a", "b"),
		},
		{
			name:  "both empty",
			left:  set.New[string](),
			right: set.New[string](),
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.left.Equal(tt.right))
		})
	}
}

func TestOrdered_Values(t *testing.T) {
	s := set.NewOrdered(3, 1, 2)
	assert.Equal(t, []int{1, 2, 3}, s.Values())
}

func TestOrdered_MarshalJSON(t *testing.T) {
	s := set.Sorted(set.New("b", "a"))
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(b))
}
