package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := in.Result.Reply
	reply.Text = strings.TrimSpace(reply.Text)
	if reply.Text == "" {
		return GraphOutput{}, fmt.Errorf("%w: dispatch produced an empty reply", contractx.ErrValidation)
	}
	reply.Role = contractx.RoleBot

	return GraphOutput{
		Reply:      reply,
		Intent:     in.Intent,
		RemoteCall: in.Result.RemoteCall,
	}, nil
}
