package simcore

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unsafe"

	"github.com/oliverbestmann/flecs-go/internal/set"
)

// table holds all entities that share exactly the same set of ids.
type table struct {
	id  int
	ids []Id

	entities []Id

	// parallel to ids, nil for ids that do not carry data
	columns []*column
}

func makeTable(id int, sortedIds []Id, infoOf func(Id) *typeInfo) *table {
	if set.Of(sortedIds...).Len() != len(sortedIds) {
		panic(fmt.Sprintf("table contains duplicate ids: %v", sortedIds))
	}

	columns := make([]*column, len(sortedIds))
	for idx, id := range sortedIds {
		if info := infoOf(id); info != nil {
			columns[idx] = makeColumn(info)
		}
	}

	return &table{
		id:      id,
		ids:     sortedIds,
		columns: columns,
	}
}

func (t *table) String() string {
	var value strings.Builder

	value.WriteString("Table(")
	for idx, id := range t.ids {
		if idx > 0 {
			value.WriteString(", ")
		}

		value.WriteString(strconv.FormatUint(id, 16))
	}

	value.WriteString(")")

	return value.String()
}

func (t *table) indexOf(id Id) int {
	idx, found := slices.BinarySearch(t.ids, id)
	if !found {
		return -1
	}

	return idx
}

func (t *table) Contains(id Id) bool {
	return t.indexOf(id) >= 0
}

func (t *table) Count() int {
	return len(t.entities)
}

// Append adds an entity with zero initialized values and returns its row.
func (t *table) Append(entity Id) int {
	defer t.assertInvariants()

	for _, column := range t.columns {
		if column != nil {
			column.AppendZero()
		}
	}

	t.entities = append(t.entities, entity)
	return len(t.entities) - 1
}

// Remove removes the entity at row by moving the last entity into its slot.
// Returns the entity that now lives at row, or zero if no entity was moved.
func (t *table) Remove(row int) Id {
	defer t.assertInvariants()

	rowSwap := len(t.entities) - 1

	var moved Id
	if row != rowSwap {
		// move entity from rowSwap to row
		t.entities[row] = t.entities[rowSwap]
		moved = t.entities[row]

		for _, column := range t.columns {
			if column != nil {
				column.Copy(rowSwap, row)
			}
		}
	}

	// now truncate columns & entities
	t.entities = t.entities[:rowSwap]
	for _, column := range t.columns {
		if column != nil {
			column.Truncate(rowSwap)
		}
	}

	return moved
}

// Import copies the entity at row of source into this table. Values of ids
// that do not exist in source are zero initialized.
func (t *table) Import(source *table, row int) int {
	defer t.assertInvariants()

	for idx, column := range t.columns {
		if column == nil {
			continue
		}

		sourceIdx := source.indexOf(t.ids[idx])
		if sourceIdx >= 0 && source.columns[sourceIdx] != nil {
			column.Import(source.columns[sourceIdx], row)
		} else {
			column.AppendZero()
		}
	}

	t.entities = append(t.entities, source.entities[row])
	return len(t.entities) - 1
}

// Ptr returns a pointer to the value of id at row, or nil if id does not carry data.
func (t *table) Ptr(row int, id Id) unsafe.Pointer {
	idx := t.indexOf(id)
	if idx < 0 || t.columns[idx] == nil {
		return nil
	}

	return t.columns[idx].ptrTo(row)
}

func (t *table) assertInvariants() {
	entityCount := len(t.entities)

	for idx, column := range t.columns {
		if column != nil && column.Len() != entityCount {
			panic(fmt.Sprintf("%s: expected %d values in column %x, got %d", t, entityCount, t.ids[idx], column.Len()))
		}
	}
}
