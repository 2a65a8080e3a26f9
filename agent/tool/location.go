package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var locationInfo = &schema.ToolInfo{
	Name: ToolGetLocation,
	Desc: "Get the business location details. Returns everything known when the requested type is missing.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"info_type": {
			Type:     schema.String,
			Desc:     "Which detail to return",
			Enum:     []string{"address", "directions", "parking"},
			Required: true,
		},
	}),
}

type locationInput struct {
	InfoType Text `json:"info_type"`
}

func (h *handlers) getLocation(ctx context.Context, call Call, in locationInput) string {
	p, msg, ok := h.profile(ctx, call, "get_location.profile")
	if !ok {
		if msg != "" {
			return msg
		}
		return "Location information is not configured for this business yet."
	}

	if len(p.Location) == 0 {
		return "Location information is not available right now."
	}

	if key, value, found := lookup(p.Location, in.InfoType.String()); found {
		return fmt.Sprintf("%s: %s", strings.ToLower(key), value)
	}

	lines := make([]string, 0, len(p.Location))
	for _, k := range sortedKeys(p.Location) {
		if v := strings.TrimSpace(p.Location[k]); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", strings.ToLower(k), v))
		}
	}
	if len(lines) == 0 {
		return "Location information is not available right now."
	}
	return strings.Join(lines, "\n")
}
