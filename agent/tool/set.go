package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/state"
)

const (
	ToolGetServiceInfo     = "get_service_info"
	ToolGetLocation        = "get_location"
	ToolCheckAvailability  = "check_availability"
	ToolCheckClientExists  = "check_client_exists"
	ToolUpdateBookingState = "update_booking_state"
	ToolBookAppointment    = "book_appointment"
)

const apology = "Sorry, something went wrong on our side. Please try again in a moment."

// Deps are the collaborators shared by every tool of a Set.
type Deps struct {
	BusinessID   string
	Store        state.Store
	Profiles     contractx.BusinessProfiles
	Clients      contractx.ClientRegistry
	Appointments contractx.Appointments
	// Location is used for dates and times when the profile has no timezone.
	Location *time.Location
	Slots    []string
	Now      func() time.Time
}

// Call identifies the invocation a tool runs for.
type Call struct {
	SessionID string
}

// Tool is one model-callable function. Run always returns text.
type Tool struct {
	Info *schema.ToolInfo
	run  func(ctx context.Context, call Call, rawArgs string) string
}

// Set is the immutable tool registry shared by all sessions.
type Set struct {
	tools map[string]Tool
	infos []*schema.ToolInfo
}

func NewSet(deps Deps) (*Set, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: tool set requires a session store", contractx.ErrValidation)
	}
	if strings.TrimSpace(deps.BusinessID) == "" {
		return nil, fmt.Errorf("%w: tool set requires a business id", contractx.ErrValidation)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	h := &handlers{deps: deps}
	return newSet(
		newTool(serviceInfo, h.getServiceInfo),
		newTool(locationInfo, h.getLocation),
		newTool(availabilityInfo, h.checkAvailability),
		newTool(clientExistsInfo, h.checkClientExists),
		newTool(updateStateInfo, h.updateBookingState),
		newTool(bookAppointmentInfo, h.bookAppointment),
	), nil
}

func newSet(tools ...Tool) *Set {
	s := &Set{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.tools[t.Info.Name] = t
		s.infos = append(s.infos, t.Info)
	}
	return s
}

// Infos returns the tool descriptors in registration order.
func (s *Set) Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, len(s.infos))
	copy(out, s.infos)
	return out
}

func (s *Set) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool. It never returns an error: unknown tools,
// malformed arguments and panics all become text for the model.
func (s *Set) Invoke(ctx context.Context, sessionID, name, rawArgs string) (out string) {
	t, ok := s.tools[name]
	if !ok {
		return fmt.Sprintf("Unknown tool %q. Available tools: %s.", name, strings.Join(s.Names(), ", "))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("session_id", sessionID).
				Str("tool", name).
				Interface("panic", r).
				Msg("tool panicked")
			out = apology
		}
	}()

	return t.run(ctx, Call{SessionID: sessionID}, rawArgs)
}

// newTool binds a typed executor. Arguments are decoded into T, normalized
// when T implements normalizer and checked against its binding tags before
// the executor runs.
func newTool[T any](info *schema.ToolInfo, exec func(ctx context.Context, call Call, in T) string) Tool {
	return Tool{
		Info: info,
		run: func(ctx context.Context, call Call, rawArgs string) string {
			var in T
			if raw := strings.TrimSpace(rawArgs); raw != "" {
				if err := json.Unmarshal([]byte(raw), &in); err != nil {
					return fmt.Sprintf("Invalid arguments for %s: %s.", info.Name, describeDecodeError(err))
				}
			}
			if n, ok := any(&in).(normalizer); ok {
				n.normalize()
			}
			if err := checkArgs(&in); err != nil {
				return fmt.Sprintf("Invalid arguments for %s: %s.", info.Name, err.Error())
			}
			return exec(ctx, call, in)
		},
	}
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	}
	var textErr *textError
	if errors.As(err, &textErr) {
		return textErr.Error()
	}
	return "arguments must be a JSON object"
}

type handlers struct {
	deps Deps
}

func (h *handlers) logFailure(call Call, operation string, err error) {
	log.Error().
		Err(err).
		Str("session_id", call.SessionID).
		Str("business_id", h.deps.BusinessID).
		Str("operation", operation).
		Msg("tool operation failed")
}

// location resolves the business timezone, falling back to the default.
func (h *handlers) location(profile contractx.Profile) *time.Location {
	if tz := strings.TrimSpace(profile.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return h.deps.Location
}

// currentState returns the stored state, or a fresh one for unseen sessions.
func (h *handlers) currentState(ctx context.Context, sessionID string) (state.BookingState, error) {
	st, err := h.deps.Store.Get(ctx, sessionID)
	if errors.Is(err, state.ErrStateNotFound) {
		return state.NewBookingState(sessionID, h.deps.Now()), nil
	}
	return st, err
}
