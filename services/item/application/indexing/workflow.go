// Package indexing runs item re-indexing as a Temporal workflow when Temporal
// is enabled, and inline otherwise.
package indexing

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// IndexItemWorkflowName is the registered workflow type name.
const IndexItemWorkflowName = "IndexItem"

const errTypeInvalidItem = "InvalidItem"

// Activities wraps the Indexer for Temporal. Register a single instance.
type Activities struct {
	Indexer *appsvcs.Indexer
}

// IndexLocation writes the item position. Invalid positions fail without retry.
func (a *Activities) IndexLocation(ctx context.Context, req appsvcs.IndexRequest) error {
	err := a.Indexer.Index(ctx, req)
	if errors.Is(err, itemdomain.ErrInvalidItem) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidItem, err)
	}
	return err
}

// WarmRecord reads the record through the cache.
func (a *Activities) WarmRecord(ctx context.Context, itemID string) error {
	return a.Indexer.Warm(ctx, itemID)
}

// IndexItemWorkflow indexes the item position, then warms its record. A failed
// warm does not fail the workflow.
func IndexItemWorkflow(ctx workflow.Context, req appsvcs.IndexRequest) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{errTypeInvalidItem},
		},
	})
	log := workflow.GetLogger(ctx)

	var a *Activities
	if err := workflow.ExecuteActivity(ctx, a.IndexLocation, req).Get(ctx, nil); err != nil {
		return err
	}

	warmCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	if err := workflow.ExecuteActivity(warmCtx, a.WarmRecord, req.ItemID).Get(warmCtx, nil); err != nil {
		log.Warn("record warm failed", "item_id", req.ItemID, "error", err)
	}
	return nil
}
