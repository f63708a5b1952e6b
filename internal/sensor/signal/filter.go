package signal

import (
	"slices"

	"github.com/banshee-data/sensorkit/internal/sensor/entity"
)

// Filter gates signals by an ignore list and an optional tag allow-list.
// Tag filtering with an empty allow-list lets everything through.
type Filter struct {
	EnableTagFilter bool
	AllowedTags     []string

	ignore map[entity.Handle]struct{}
}

// NewFilter returns a filter that passes everything.
func NewFilter() *Filter {
	return &Filter{ignore: make(map[entity.Handle]struct{})}
}

// Ignore excludes h, and anything whose body is h, from detection.
func (f *Filter) Ignore(h entity.Handle) {
	if f.ignore == nil {
		f.ignore = make(map[entity.Handle]struct{})
	}
	f.ignore[h] = struct{}{}
}

// Unignore removes h from the ignore list.
func (f *Filter) Unignore(h entity.Handle) {
	delete(f.ignore, h)
}

// IsIgnored reports whether h is on the ignore list.
func (f *Filter) IsIgnored(h entity.Handle) bool {
	_, ok := f.ignore[h]
	return ok
}

// IgnoreList returns the ignored handles in ascending order.
func (f *Filter) IgnoreList() []entity.Handle {
	out := make([]entity.Handle, 0, len(f.ignore))
	for h := range f.ignore {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// IsNull reports whether the filter passes every signal.
func (f *Filter) IsNull() bool {
	return len(f.ignore) == 0 && !f.tagFiltering()
}

// TestInput rejects object when it, or its owning body, is ignored.
func (f *Filter) TestInput(object, body entity.Handle) bool {
	if len(f.ignore) == 0 {
		return true
	}
	if f.IsIgnored(object) {
		return false
	}
	return body.IsZero() || !f.IsIgnored(body)
}

// IsPassingTagFilter reports whether object's tag is allowed.
func (f *Filter) IsPassingTagFilter(world entity.Lookup, object entity.Handle) bool {
	if !f.tagFiltering() {
		return true
	}
	return slices.Contains(f.AllowedTags, world.Tag(object))
}

func (f *Filter) tagFiltering() bool {
	return f.EnableTagFilter && len(f.AllowedTags) > 0
}
