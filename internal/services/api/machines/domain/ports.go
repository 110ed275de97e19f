package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	List(ctx context.Context, in ListInput) ([]Machine, error)
	Summaries(ctx context.Context, in SummariesInput) ([]SummaryRow, error)
	StatusToday(ctx context.Context, in StatusTodayInput) (StatusToday, error)
}
