package health

import "context"

// DBPinger checks cache database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks extraction provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexCounter reports the number of indexed products.
type IndexCounter interface {
	Len() int
}
