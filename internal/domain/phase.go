package domain

// Phase is a coarse-grained retrieval progress marker consumed by the
// streaming transport layer.
type Phase string

const (
	// PhaseRetrieving means lexical and vector searches are in flight.
	PhaseRetrieving Phase = "retrieving"
	// PhaseReranking means the rerank stage is running.
	PhaseReranking Phase = "reranking"
	// PhaseDone means the ranked result list is ready.
	PhaseDone Phase = "done"
)

// PhaseListener receives phase markers as discrete events. Listeners must be
// fast and non-blocking; they are invoked synchronously on the request path.
type PhaseListener func(Phase)
