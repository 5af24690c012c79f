// Package exceptions classifies unresolved reconciliation items as
// auto-resolved or requiring manual review.
//
// Resolution is a strategy interface so callers never know which strategy
// fired: the default ManualReviewResolver escalates everything, and
// ChainResolver composes strategies first-verdict-wins for when automatic
// adjustment rules exist.
package exceptions

import (
	"context"
	"fmt"

	"reconciliation-engine/internal/models"
)

// Resolver attempts automatic resolution of a reconciliation exception.
// Implementations must be side-effect-free with respect to the exception:
// the verdict is returned, not written onto the input.
type Resolver interface {
	Resolve(ctx context.Context, exception *models.ReconciliationException) (*models.Resolution, error)
}

// ManualReviewResolver is the default strategy: it never resolves anything
// and routes every exception to manual review. This is deliberate, not an
// omission; automatic adjustment rules plug in through the Resolver
// interface when they exist.
type ManualReviewResolver struct{}

// NewManualReviewResolver creates the default escalate-everything resolver
func NewManualReviewResolver() *ManualReviewResolver {
	return &ManualReviewResolver{}
}

// Resolve always reports the exception as unresolved
func (r *ManualReviewResolver) Resolve(ctx context.Context, exception *models.ReconciliationException) (*models.Resolution, error) {
	if exception == nil {
		return nil, fmt.Errorf("exception is required")
	}

	return &models.Resolution{
		Resolved: false,
		Reason:   "no automatic resolution rule matched",
	}, nil
}

// ChainResolver tries each strategy in order and returns the first resolved
// verdict. When no strategy resolves the exception, the last verdict wins.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver composes resolvers, first-verdict-wins. An empty chain
// behaves like ManualReviewResolver.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	if len(resolvers) == 0 {
		resolvers = []Resolver{NewManualReviewResolver()}
	}

	return &ChainResolver{resolvers: resolvers}
}

// Resolve walks the chain until a strategy resolves the exception
func (r *ChainResolver) Resolve(ctx context.Context, exception *models.ReconciliationException) (*models.Resolution, error) {
	var last *models.Resolution

	for _, resolver := range r.resolvers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolution, err := resolver.Resolve(ctx, exception)
		if err != nil {
			return nil, err
		}

		if resolution.Resolved {
			return resolution, nil
		}

		last = resolution
	}

	return last, nil
}

// Classify runs the resolver over each exception candidate and stamps the
// resolution and terminal status onto a fresh exception record. Input
// records are not mutated.
func Classify(ctx context.Context, resolver Resolver, candidates []*models.BankTransaction) ([]*models.ReconciliationException, error) {
	if resolver == nil {
		resolver = NewManualReviewResolver()
	}

	exceptions := make([]*models.ReconciliationException, 0, len(candidates))
	for _, item := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exception := &models.ReconciliationException{SourceItem: item}

		resolution, err := resolver.Resolve(ctx, exception)
		if err != nil {
			return nil, fmt.Errorf("resolving exception for transaction %s: %w", item.ID, err)
		}

		exception.Resolution = resolution
		if resolution.Resolved {
			exception.Status = models.ExceptionResolved
		} else {
			exception.Status = models.ExceptionManualReview
		}

		exceptions = append(exceptions, exception)
	}

	return exceptions, nil
}
