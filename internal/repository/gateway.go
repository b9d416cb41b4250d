package repository

import (
	"context"

	"github.com/vespa-learn/activity-api/internal/recordstore"
)

// Gateway is the slice of the record store client the repositories use.
type Gateway interface {
	Read(ctx context.Context, collection string, filter *recordstore.Filter, page recordstore.Page) ([]recordstore.Record, *recordstore.PageInfo, error)
	Create(ctx context.Context, collection string, fields map[string]interface{}) (recordstore.Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) (recordstore.Record, error)
}

// storeTimeLayout is how the record store serialises date/time fields.
const storeTimeLayout = "02/01/2006 15:04"
