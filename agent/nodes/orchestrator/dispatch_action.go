package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/responder"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/metrics"
)

const GreetingReply = "Hello! How can I help you today?"

// DispatchAction runs the side effect for actionable intents and falls back to
// the informational responder otherwise. The cache is only read here; the delta
// is applied by the next node.
func DispatchAction(
	ctx context.Context,
	in *GraphState,
	store contractx.EntityStore,
	policy cache.TieBreak,
) (*GraphState, error) {
	if in == nil || in.Cache == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	if in.Intent.Kind == contractx.IntentInformational {
		reply := responder.Respond(in.Text, in.Cache.Vendors(), in.Cache.Orders())
		in.Result = contractx.DispatchResult{Reply: contractx.BotMessage(reply)}
		return in, nil
	}

	in.Result = Dispatch(ctx, in.Intent, in.Cache, store, policy)
	return in, nil
}

// Dispatch executes one classified intent. Failures never escape as errors:
// they become reply text and an empty cache delta.
func Dispatch(
	ctx context.Context,
	in contractx.Intent,
	c *cache.Cache,
	store contractx.EntityStore,
	policy cache.TieBreak,
) contractx.DispatchResult {
	switch in.Kind {
	case contractx.IntentGreeting:
		return contractx.DispatchResult{Reply: contractx.BotMessage(GreetingReply)}
	case contractx.IntentCreateOrder:
		return createOrder(ctx, in, store)
	case contractx.IntentDeleteOrder:
		return deleteOrder(ctx, in, c, store, policy)
	default:
		return contractx.DispatchResult{Reply: contractx.BotMessage(responder.Capabilities)}
	}
}

func createOrder(ctx context.Context, in contractx.Intent, store contractx.EntityStore) contractx.DispatchResult {
	created, err := store.CreateOrder(ctx, in.OrderFields())
	metrics.ObserveStoreCall("create_order", err)
	if err != nil {
		log.Warn().Err(err).Msg("chat create order failed")
		return contractx.DispatchResult{
			Reply:      contractx.BotMessage(remoteFailure("create", "creating", err)),
			RemoteCall: true,
		}
	}

	return contractx.DispatchResult{
		Reply:      contractx.BotMessage(fmt.Sprintf("PO created successfully: #%d (id %d)", created.PONumber, created.ID)),
		Delta:      contractx.CacheDelta{PrependOrder: &created},
		RemoteCall: true,
	}
}

func deleteOrder(
	ctx context.Context,
	in contractx.Intent,
	c *cache.Cache,
	store contractx.EntityStore,
	policy cache.TieBreak,
) contractx.DispatchResult {
	if in.PONumber == nil {
		return contractx.DispatchResult{Reply: contractx.BotMessage(responder.Capabilities)}
	}
	poNumber := *in.PONumber

	target, err := c.FindOrderByNumber(poNumber, policy)
	switch {
	case errors.Is(err, cache.ErrAmbiguousOrder):
		return contractx.DispatchResult{
			Reply: contractx.BotMessage(fmt.Sprintf("Multiple POs found with number %d. Delete the right one from the Purchase Orders tab.", poNumber)),
		}
	case err != nil:
		return contractx.DispatchResult{
			Reply: contractx.BotMessage(fmt.Sprintf("No PO found with number %d.", poNumber)),
		}
	}

	err = store.DeleteOrder(ctx, target.ID)
	metrics.ObserveStoreCall("delete_order", err)
	if err != nil {
		log.Warn().Err(err).Int64("order_id", target.ID).Msg("chat delete order failed")
		return contractx.DispatchResult{
			Reply:      contractx.BotMessage(remoteFailure("delete", "deleting", err)),
			RemoteCall: true,
		}
	}

	removed := target.ID
	return contractx.DispatchResult{
		Reply:      contractx.BotMessage(fmt.Sprintf("PO #%d deleted.", poNumber)),
		Delta:      contractx.CacheDelta{RemoveOrderID: &removed},
		RemoteCall: true,
	}
}

// remoteFailure distinguishes a rejected request, whose body is shown as is,
// from a transport error.
func remoteFailure(verb, gerund string, err error) string {
	var remote *contractx.RemoteError
	if errors.As(err, &remote) {
		return fmt.Sprintf("Failed to %s PO: %s", verb, remote.Detail)
	}
	return fmt.Sprintf("Error %s PO: %s", gerund, err.Error())
}
