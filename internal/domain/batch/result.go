package batch

import "github.com/artomart/craftsearch/internal/domain"

// ItemStatus is the indexing outcome of a single product in a batch.
type ItemStatus string

// Batch item status values.
const (
	StatusIndexed ItemStatus = "indexed"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of indexing one product of a batch.
type Result struct {
	id            string
	status        ItemStatus
	lexicalSource domain.ExtractionSource
	images        int
	err           error
}

// NewIndexed creates a successful result from the stored entry.
func NewIndexed(e *domain.Entry) Result {
	return Result{
		id:            e.Product.ID,
		status:        StatusIndexed,
		lexicalSource: e.LexicalSource,
		images:        len(e.Images),
	}
}

// NewError creates a failed result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the product identifier.
func (r Result) ID() string { return r.id }

// Status returns the indexing outcome.
func (r Result) Status() ItemStatus { return r.status }

// OK reports whether the product was indexed.
func (r Result) OK() bool { return r.status == StatusIndexed }

// LexicalSource tells whether the text tags were extracted, cached or degraded.
func (r Result) LexicalSource() domain.ExtractionSource { return r.lexicalSource }

// Images returns how many images were analyzed.
func (r Result) Images() int { return r.images }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
