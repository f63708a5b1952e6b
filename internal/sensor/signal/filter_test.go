package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
)

func TestFilterTestInput(t *testing.T) {
	t.Parallel()

	obj := entity.NewHandle(1, 0)
	body := entity.NewHandle(2, 0)
	other := entity.NewHandle(3, 0)

	tests := []struct {
		name   string
		ignore []entity.Handle
		object entity.Handle
		body   entity.Handle
		want   bool
	}{
		{name: "empty ignore list", object: obj, body: body, want: true},
		{name: "object ignored", ignore: []entity.Handle{obj}, object: obj, body: body, want: false},
		{name: "body ignored", ignore: []entity.Handle{body}, object: obj, body: body, want: false},
		{name: "no body", ignore: []entity.Handle{body}, object: obj, body: entity.None, want: true},
		{name: "unrelated ignored", ignore: []entity.Handle{other}, object: obj, body: body, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := NewFilter()
			for _, h := range tt.ignore {
				f.Ignore(h)
			}
			assert.Equal(t, tt.want, f.TestInput(tt.object, tt.body))
		})
	}
}

func TestFilterTags(t *testing.T) {
	t.Parallel()

	world := entity.NewRegistry()
	car := world.Create(entity.Spec{Tag: "car"})
	tree := world.Create(entity.Spec{Tag: "tree"})

	f := NewFilter()
	assert.True(t, f.IsNull())
	assert.True(t, f.IsPassingTagFilter(world, tree))

	f.EnableTagFilter = true
	assert.True(t, f.IsNull(), "tag filter without allowed tags passes everything")

	f.AllowedTags = []string{"car", "bus"}
	assert.False(t, f.IsNull())
	assert.True(t, f.IsPassingTagFilter(world, car))
	assert.False(t, f.IsPassingTagFilter(world, tree))

	f.EnableTagFilter = false
	assert.True(t, f.IsPassingTagFilter(world, tree))
}

func TestFilterIgnoreList(t *testing.T) {
	t.Parallel()

	f := NewFilter()
	a, b := entity.NewHandle(5, 1), entity.NewHandle(2, 0)
	f.Ignore(a)
	f.Ignore(b)
	f.Ignore(a)
	assert.False(t, f.IsNull())
	assert.Equal(t, []entity.Handle{b, a}, f.IgnoreList())

	f.Unignore(a)
	f.Unignore(b)
	assert.True(t, f.IsNull())
	assert.False(t, f.IsIgnored(a))

	var zero Filter
	zero.Ignore(a)
	assert.True(t, zero.IsIgnored(a))
}
