package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

var serviceInfo = &schema.ToolInfo{
	Name: ToolGetServiceInfo,
	Desc: "Look up a service offered by the business and its price. Pass \"promo\" to get the current promotion. Returns the full catalog when the service is unknown.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"service": {Type: schema.String, Desc: "Service name, or \"promo\"", Required: true},
	}),
}

type serviceInput struct {
	Service Text `json:"service"`
}

// profile loads the business profile. ok is false when the returned text
// should be sent back as is.
func (h *handlers) profile(ctx context.Context, call Call, operation string) (contractx.Profile, string, bool) {
	if h.deps.Profiles == nil {
		return contractx.Profile{}, "", false
	}
	p, err := h.deps.Profiles.Profile(ctx, h.deps.BusinessID)
	if errors.Is(err, contractx.ErrNotFound) {
		return contractx.Profile{}, "", false
	}
	if err != nil {
		h.logFailure(call, operation, err)
		return contractx.Profile{}, apology, false
	}
	return p, "", true
}

func (h *handlers) getServiceInfo(ctx context.Context, call Call, in serviceInput) string {
	p, msg, ok := h.profile(ctx, call, "get_service_info.profile")
	if !ok {
		if msg != "" {
			return msg
		}
		return "Service information is not configured for this business yet."
	}

	query := in.Service.String()
	if strings.EqualFold(query, "promo") {
		if promo := strings.TrimSpace(p.Promo); promo != "" {
			return "Current promotion: " + promo
		}
		return "There are no promotions running right now."
	}

	if len(p.Services) == 0 {
		return "Service information is not available right now."
	}

	if name, detail, found := lookup(p.Services, query); found {
		return fmt.Sprintf("%s: %s", name, detail)
	}

	var b strings.Builder
	if query != "" {
		fmt.Fprintf(&b, "We don't offer %q. ", query)
	}
	b.WriteString("Here are our services:")
	for _, name := range sortedKeys(p.Services) {
		fmt.Fprintf(&b, "\n- %s: %s", name, p.Services[name])
	}
	return b.String()
}

// lookup matches key exactly first, then case-insensitively.
func lookup(m map[string]string, key string) (string, string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	if v, ok := m[key]; ok {
		return key, v, true
	}
	for _, k := range sortedKeys(m) {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return k, m[k], true
		}
	}
	return "", "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
