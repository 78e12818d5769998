package simcore

import (
	"slices"
)

type tableGraph struct {
	transitions map[tableTransition]*table
}

type tableTransition struct {
	table    *table
	id       Id
	isInsert bool
}

func (g *tableGraph) NextWith(s *storage, current *table, id Id) *table {
	tr := tableTransition{
		table:    current,
		id:       id,
		isInsert: true,
	}

	if next, ok := g.transitions[tr]; ok {
		return next
	}

	// get the target table by adding the id
	ids := slices.Clone(current.ids)
	ids = append(ids, id)
	slices.Sort(ids)

	return g.insertTransition(s, tr, ids)
}

func (g *tableGraph) NextWithout(s *storage, current *table, id Id) *table {
	tr := tableTransition{
		table:    current,
		id:       id,
		isInsert: false,
	}

	if next, ok := g.transitions[tr]; ok {
		return next
	}

	// get the target table by removing the id
	var ids []Id
	for _, other := range current.ids {
		if other != id {
			ids = append(ids, other)
		}
	}

	return g.insertTransition(s, tr, ids)
}

func (g *tableGraph) insertTransition(s *storage, tr tableTransition, ids []Id) *table {
	if g.transitions == nil {
		g.transitions = map[tableTransition]*table{}
	}

	next := s.Lookup(ids)
	g.transitions[tr] = next

	return next
}
