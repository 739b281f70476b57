// Package coalesce reduces a drained batch of operation records into a
// smaller equivalent batch by merging redundant work, so fewer primitives
// run inside each store transaction.
package coalesce

import (
	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

// Group is one unit of store work after coalescing: the effective parameters
// to execute plus every completion that must be resolved with the group's
// outcome. Records merged away keep their own completions; they are carried
// here instead of executing.
type Group struct {
	// Kind is the operation type the group executes.
	Kind core.Kind

	// Keys holds the merged target keys for Select and InvalidateKeys.
	Keys []string

	// Types holds the merged target type tags for SelectByType and
	// InvalidateByType.
	Types []string

	// Elements holds the surviving entries to upsert for Insert.
	Elements []core.Element

	// Completions are resolved together once the group's transaction
	// commits, all with the group's single outcome.
	Completions []*core.Completion
}

// Batch reduces an ordered sequence of records into an ordered sequence of
// groups with the same net effect. Merge rules:
//
//   - Inserts coalesce by key: only the last write for a key survives.
//     An insert record whose every element is superseded stops executing and
//     its completion joins the superseding group.
//   - Consecutive InvalidateKeys (or InvalidateByType) records merge into
//     the union of their targets.
//   - InvalidateAll absorbs every write ordered before it, back to the most
//     recent read.
//   - Reads are never merged. They also act as a barrier: no merge rule
//     reaches across a read, so a read always observes every write ordered
//     before it in the batch.
//
// "Last write wins" is always by arrival order in the drained sequence.
func Batch(records []*core.Record) []*Group {
	groups := make([]*Group, 0, len(records))

	// barrier is the index just past the most recent read group. Merge rules
	// only consider groups at or beyond it.
	barrier := 0

	for _, r := range records {
		switch r.Kind {
		case core.KindSelect, core.KindSelectByType, core.KindListKeys:
			groups = append(groups, newGroup(r))
			barrier = len(groups)

		case core.KindInsert:
			g := newGroup(r)
			g.Elements = dedupeElements(g.Elements)
			groups = supersedeInserts(groups, barrier, g)
			groups = append(groups, g)

		case core.KindInvalidateKeys:
			if last := lastGroup(groups, barrier); last != nil && last.Kind == core.KindInvalidateKeys {
				last.Keys = mergeStrings(last.Keys, r.Keys)
				last.Completions = append(last.Completions, r.Completion)
				continue
			}
			groups = append(groups, newGroup(r))

		case core.KindInvalidateByType:
			if last := lastGroup(groups, barrier); last != nil && last.Kind == core.KindInvalidateByType {
				last.Types = mergeStrings(last.Types, r.Types)
				last.Completions = append(last.Completions, r.Completion)
				continue
			}
			groups = append(groups, newGroup(r))

		case core.KindInvalidateAll:
			g := newGroup(r)
			groups = absorbWrites(groups, barrier, g)
			groups = append(groups, g)

		default:
			// Vacuum and NoOp are never merged.
			groups = append(groups, newGroup(r))
		}
	}

	return groups
}

// newGroup starts a group from a single record, copying the parameter slices
// so later merging never mutates the record itself.
func newGroup(r *core.Record) *Group {
	g := &Group{
		Kind:        r.Kind,
		Completions: []*core.Completion{r.Completion},
	}
	if len(r.Keys) > 0 {
		g.Keys = append([]string(nil), r.Keys...)
	}
	if len(r.Types) > 0 {
		g.Types = append([]string(nil), r.Types...)
	}
	if len(r.Elements) > 0 {
		g.Elements = append([]core.Element(nil), r.Elements...)
	}
	return g
}

// lastGroup returns the most recent group if it lies at or beyond the
// barrier, nil otherwise.
func lastGroup(groups []*Group, barrier int) *Group {
	if len(groups) <= barrier {
		return nil
	}
	return groups[len(groups)-1]
}

// supersedeInserts removes from earlier insert groups every element whose
// key is rewritten by g. An insert group left with no elements is dropped
// from execution and its completions move into g.
func supersedeInserts(groups []*Group, barrier int, g *Group) []*Group {
	rewritten := make(map[string]struct{}, len(g.Elements))
	for _, el := range g.Elements {
		rewritten[el.Key] = struct{}{}
	}

	kept := groups[:0]
	for i, prev := range groups {
		if i < barrier || prev.Kind != core.KindInsert {
			kept = append(kept, prev)
			continue
		}

		surviving := prev.Elements[:0]
		for _, el := range prev.Elements {
			if _, ok := rewritten[el.Key]; !ok {
				surviving = append(surviving, el)
			}
		}
		prev.Elements = surviving

		if len(prev.Elements) == 0 {
			g.Completions = append(g.Completions, prev.Completions...)
			continue
		}
		kept = append(kept, prev)
	}
	return kept
}

// absorbWrites removes every write group at or beyond the barrier; their
// effect is subsumed by the InvalidateAll group g, which takes over their
// completions.
func absorbWrites(groups []*Group, barrier int, g *Group) []*Group {
	kept := groups[:0]
	for i, prev := range groups {
		if i < barrier || !isWrite(prev.Kind) {
			kept = append(kept, prev)
			continue
		}
		g.Completions = append(g.Completions, prev.Completions...)
	}
	return kept
}

// isWrite reports whether the kind mutates keyed store state.
func isWrite(kind core.Kind) bool {
	switch kind {
	case core.KindInsert, core.KindInvalidateKeys, core.KindInvalidateByType, core.KindInvalidateAll:
		return true
	}
	return false
}

// dedupeElements keeps the last element written for each key, preserving
// the position of each key's first occurrence.
func dedupeElements(in []core.Element) []core.Element {
	if len(in) < 2 {
		return in
	}

	out := in[:0]
	seen := make(map[string]int, len(in))
	for _, el := range in {
		if i, ok := seen[el.Key]; ok {
			out[i] = el
			continue
		}
		seen[el.Key] = len(out)
		out = append(out, el)
	}
	return out
}

// mergeStrings appends the members of src not already present in dst.
func mergeStrings(dst, src []string) []string {
	existing := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		existing[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := existing[s]; !ok {
			dst = append(dst, s)
		}
	}
	return dst
}
