package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/intent"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/metrics"
)

func ClassifyIntent(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Intent = intent.Classify(in.Text)
	metrics.IntentsTotal.WithLabelValues(string(in.Intent.Kind)).Inc()
	log.Debug().Str("intent", string(in.Intent.Kind)).Msg("message classified")
	return in, nil
}
