package timeline

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("invalid timeline range")

type item struct {
	timing    Timing
	component Component
	// detached items never close open BeforeNext items.
	detached bool
}

// Builder collects placements in program order and resolves them on Build.
// A Builder is single use: adding after Build panics.
type Builder struct {
	items  []*item
	cursor time.Duration
	built  bool
}

func New() *Builder {
	return &Builder{}
}

// Cursor is where the next AfterPrevious item would start if no BeforeNext
// item is open.
func (b *Builder) Cursor() time.Duration {
	return b.cursor
}

// Len returns the number of placed components.
func (b *Builder) Len() int {
	return len(b.items)
}

// Add places every component with the same start and end and returns the
// resolved start. An empty component list is ignored.
func (b *Builder) Add(start Start, end End, components ...Component) (time.Duration, error) {
	return b.add(start, end, false, components)
}

// AddDetached is Add for items that must not close open BeforeNext items,
// such as speech audio whose visuals are placed separately.
func (b *Builder) AddDetached(start Start, end End, components ...Component) (time.Duration, error) {
	return b.add(start, end, true, components)
}

func (b *Builder) add(start Start, end End, detached bool, components []Component) (time.Duration, error) {
	b.mustBeOpen()
	if len(components) == 0 {
		return b.resolveStart(start), nil
	}

	t := Timing{From: b.resolveStart(start), End: end}
	if err := t.validate(); err != nil {
		return 0, err
	}
	if !detached {
		b.closeOpen(t.From)
	}
	for _, c := range components {
		b.items = append(b.items, &item{timing: t, component: c, detached: detached})
	}
	b.advance(t)
	return t.From, nil
}

// Subsequence builds body on a fresh builder with its own zero-based cursor
// and splices the result at the resolved start. A fixed end (For or EndAt)
// bounds the child: open child items are pinned to the bound and later ends
// are clamped to it. An UntilEnd child therefore spans the whole bound even
// when every other child ends earlier, so visuals inside a TTS block last as
// long as the speech. Without a bound, UntilEnd children end where the child
// timeline ends and BeforeNext children stay open in the parent.
func (b *Builder) Subsequence(start Start, end End, body func(*Builder) error) error {
	b.mustBeOpen()
	offset := b.resolveStart(start)
	if err := (Timing{From: offset, End: end}).validate(); err != nil {
		return err
	}

	child := New()
	if err := body(child); err != nil {
		return err
	}
	child.built = true

	bound, bounded := Timing{From: offset, End: end}.AbsoluteEnd()
	childEnd := offset + child.knownEnd()
	subEnd := childEnd
	if bounded {
		subEnd = bound
	}
	clamp := func(d time.Duration) time.Duration {
		if bounded && d > bound {
			return bound
		}
		return d
	}

	for _, it := range child.items {
		from := clamp(offset + it.timing.From)
		var e End
		switch it.timing.End.Kind {
		case EndFixedDuration:
			e = EndAt(clamp(from + it.timing.End.Value))
		case EndAtPoint:
			e = EndAt(clamp(offset + it.timing.End.Value))
		case EndUntilEnd:
			e = EndAt(subEnd)
		case EndBeforeNext:
			if bounded {
				e = EndAt(bound)
			} else {
				e = it.timing.End
			}
		}
		if !it.detached {
			b.closeOpen(from)
		}
		b.items = append(b.items, &item{
			timing:    Timing{From: from, End: e},
			component: it.component,
			detached:  it.detached,
		})
	}

	if subEnd > b.cursor {
		b.cursor = subEnd
	}
	if end.Kind == EndBeforeNext && offset+end.Value > b.cursor {
		b.cursor = offset + end.Value
	}
	return nil
}

// Build pins every item still ending UntilEnd or BeforeNext to the latest
// known end and returns the components in program order.
func (b *Builder) Build() []Resolved {
	b.built = true
	last := b.knownEnd()
	out := make([]Resolved, 0, len(b.items))
	for _, it := range b.items {
		to, ok := it.timing.AbsoluteEnd()
		if !ok {
			to = last
		}
		out = append(out, Resolved{Component: it.component, From: it.timing.From, To: to})
	}
	return out
}

func (b *Builder) mustBeOpen() {
	if b.built {
		panic("timeline: add after Build")
	}
}

func (b *Builder) resolveStart(s Start) time.Duration {
	if s.Kind == StartAtPoint {
		return s.At
	}
	at := b.cursor
	for _, it := range b.items {
		if it.timing.End.Kind != EndBeforeNext || it.timing.From > b.cursor {
			continue
		}
		if floor := it.timing.From + it.timing.End.Value; floor > at {
			at = floor
		}
	}
	return at
}

// closeOpen ends every open BeforeNext item that started at or before at.
func (b *Builder) closeOpen(at time.Duration) {
	for _, it := range b.items {
		if it.timing.End.Kind == EndBeforeNext && it.timing.From <= at {
			it.timing.End = EndAt(at)
		}
	}
}

func (b *Builder) advance(t Timing) {
	var to time.Duration
	switch t.End.Kind {
	case EndFixedDuration:
		to = t.From + t.End.Value
	case EndAtPoint:
		to = t.End.Value
	case EndBeforeNext:
		to = t.From + t.End.Value
	default:
		return
	}
	if to > b.cursor {
		b.cursor = to
	}
}

// knownEnd is the latest point any item is known to reach.
func (b *Builder) knownEnd() time.Duration {
	last := b.cursor
	for _, it := range b.items {
		end, ok := it.timing.AbsoluteEnd()
		if !ok {
			end = it.timing.From
			if it.timing.End.Kind == EndBeforeNext {
				end += it.timing.End.Value
			}
		}
		if end > last {
			last = end
		}
	}
	return last
}
