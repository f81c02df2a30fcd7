// Package ordering moves field templates up and down within their post type.
package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
)

// ErrFieldNotFound is returned when the field is missing or not part of its
// post type's active list.
var ErrFieldNotFound = errors.New("field not found")

// Direction is the way a field moves in the list.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// TxRunner runs a function inside one storage transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(registry.Tx) error) error
}

// Result describes what a move did.
type Result struct {
	Field    registry.Field  `json:"field"`
	Neighbor *registry.Field `json:"neighbor,omitempty"`
	// Moved is false when the field already sat at the boundary.
	Moved bool `json:"moved"`
}

// Resolver swaps field_order values of adjacent fields.
type Resolver struct {
	Store TxRunner
}

// Move shifts the field one slot in dir. Both rows are written in the same
// transaction; a failed write leaves every order as it was.
func (r *Resolver) Move(ctx context.Context, id int64, dir Direction) (Result, error) {
	if dir != Up && dir != Down {
		return Result{}, fmt.Errorf("invalid direction %q", dir)
	}
	var res Result
	err := r.Store.InTx(ctx, func(tx registry.Tx) error {
		f, err := tx.GetField(ctx, id)
		if errors.Is(err, registry.ErrNotFound) {
			return ErrFieldNotFound
		}
		if err != nil {
			return err
		}
		list, err := tx.ListFields(ctx, f.PostType)
		if err != nil {
			return err
		}
		pos := indexOf(list, id)
		if pos < 0 {
			return ErrFieldNotFound
		}
		res.Field = list[pos]

		other := pos - 1
		if dir == Down {
			other = pos + 1
		}
		if other < 0 || other >= len(list) {
			return nil
		}

		// equal orders would make the swap invisible
		if list[pos].Order == list[other].Order {
			if err := renumber(ctx, tx, list); err != nil {
				return err
			}
		}
		a, b := list[pos], list[other]
		if err := tx.SetOrder(ctx, b.ID, a.Order); err != nil {
			return err
		}
		if err := tx.SetOrder(ctx, a.ID, b.Order); err != nil {
			return err
		}
		a.Order, b.Order = b.Order, a.Order
		res.Field = a
		res.Neighbor = &b
		res.Moved = true
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func indexOf(list []registry.Field, id int64) int {
	for i, f := range list {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// renumber assigns 0..n-1 in canonical order, updating list in place and
// writing only rows whose order changes.
func renumber(ctx context.Context, tx registry.Tx, list []registry.Field) error {
	for i := range list {
		if list[i].Order == i {
			continue
		}
		if err := tx.SetOrder(ctx, list[i].ID, i); err != nil {
			return err
		}
		list[i].Order = i
	}
	return nil
}
