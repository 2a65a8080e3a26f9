package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/state"
)

var clientExistsInfo = &schema.ToolInfo{
	Name: ToolCheckClientExists,
	Desc: "Check whether the customer is already a client by phone number. Records the phone in the booking and, for returning clients, their name.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"phone": {Type: schema.String, Desc: "Customer phone number", Required: true},
	}),
}

type clientExistsInput struct {
	Phone Text `json:"phone" binding:"required,phone"`
}

func (h *handlers) checkClientExists(ctx context.Context, call Call, in clientExistsInput) string {
	if h.deps.Clients == nil {
		h.logFailure(call, "check_client_exists.lookup", errors.New("client registry not configured"))
		return apology
	}

	phone := normalizePhone(in.Phone.String())
	client, err := h.deps.Clients.FindClientByPhone(ctx, h.deps.BusinessID, phone)
	switch {
	case errors.Is(err, contractx.ErrNotFound):
		patch := state.Patch{Phone: state.String(phone), ClientExists: state.Bool(false)}
		if _, err := h.deps.Store.Update(ctx, call.SessionID, patch); err != nil {
			h.logFailure(call, "check_client_exists.update_state", err)
			return apology
		}
		return fmt.Sprintf("No client found with phone %s. This is a new customer; please ask for their name.", phone)
	case err != nil:
		h.logFailure(call, "check_client_exists.lookup", err)
		return apology
	}

	patch := state.Patch{
		Name:         state.String(client.Name),
		Phone:        state.String(phone),
		ClientExists: state.Bool(true),
	}
	if _, err := h.deps.Store.Update(ctx, call.SessionID, patch); err != nil {
		h.logFailure(call, "check_client_exists.update_state", err)
		return apology
	}
	return fmt.Sprintf("Returning client found: %s (phone %s).", client.Name, phone)
}
