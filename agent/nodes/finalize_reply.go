package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: dispatcher returned empty reply", contractx.ErrValidation)
	}

	return GraphOutput{Result: contractx.TurnResult{
		ReplyText:    reply,
		QuickReplies: in.QuickReplies,
		Action:       in.Action,
		Escalate:     in.Session.Escalated,
	}}, nil
}
