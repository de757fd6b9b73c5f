package squad

import "context"

// Repository describes selection-history persistence needs from use cases.
type Repository interface {
	Save(ctx context.Context, selection Selection) error
	GetByMatchday(ctx context.Context, matchday int) (Selection, bool, error)
	List(ctx context.Context, limit int) ([]Selection, error)
}
