package indexing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/ghuser/lostfound/pkg/logger"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
)

// Register adds the workflow and its activities to a Temporal worker.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(IndexItemWorkflow, workflow.RegisterOptions{Name: IndexItemWorkflowName})
	w.RegisterActivity(acts)
}

// WorkflowID is the deterministic workflow id for an item, so a redelivered
// item.created joins the running execution instead of starting another.
func WorkflowID(itemID string) string {
	return "index-item-" + itemID
}

// ItemCreatedHandler returns the item.created subscriber. With a Temporal
// client it starts IndexItemWorkflow on taskQueue; with a nil client it
// indexes inline through ix.
func ItemCreatedHandler(c client.Client, taskQueue string, ix *appsvcs.Indexer, log logger.Logger) func(context.Context, *message.Message) error {
	if c == nil {
		return ix.HandleItemCreated
	}
	return func(ctx context.Context, msg *message.Message) error {
		var evt domainevents.ItemCreatedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			log.ErrorContext(ctx, "dropping malformed item.created", "message_id", msg.UUID, "error", err)
			return nil
		}

		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:                       WorkflowID(evt.ItemID),
			TaskQueue:                taskQueue,
			WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		}, IndexItemWorkflowName, appsvcs.IndexRequest{
			ItemID:    evt.ItemID,
			Latitude:  evt.Latitude,
			Longitude: evt.Longitude,
		})
		if err != nil {
			return fmt.Errorf("start index workflow: %w", err)
		}

		log.InfoContext(ctx, "index workflow started",
			"item_id", evt.ItemID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return nil
	}
}
