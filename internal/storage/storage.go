package storage

import (
	"context"

	"arbScope/internal/model"
)

// PriceSink receives normalized price records.
type PriceSink interface {
	PutPriceBatch(records []model.PriceRecord) error
}

// OpportunitySink publishes the ranked result of a scan run.
type OpportunitySink interface {
	PutOpportunities(ctx context.Context, run model.ScanRun, opps []model.Opportunity) error
}
