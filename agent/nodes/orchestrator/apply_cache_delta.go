package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

func ApplyCacheDelta(in *GraphState) (*GraphState, error) {
	if in == nil || in.Cache == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}

	in.Cache.Apply(in.Result.Delta)
	return in, nil
}
