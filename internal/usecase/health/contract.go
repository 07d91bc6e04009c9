package health

import "context"

// StorePinger checks document store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// LexicalCounter reports the number of documents held by the lexical index.
type LexicalCounter interface {
	Len() int
}
