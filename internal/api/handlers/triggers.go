package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cloo-solutions/shopple/internal/api"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/service"
	"github.com/cloo-solutions/shopple/internal/telemetry"
)

type ItemTracker interface {
	OnItemWritten(ctx context.Context, w service.ItemWrite) (*domain.BudgetAlert, error)
}

type ListHydrator interface {
	Hydrate(ctx context.Context, listID string) (*domain.HydrationMeta, error)
}

type ContactMatcher interface {
	MatchContacts(ctx context.Context, uid string) (*domain.ContactMatchResult, error)
}

type PresenceSyncer interface {
	Sync(ctx context.Context, uid string, status *domain.PresenceStatus) error
	Cleanup(ctx context.Context) (service.CleanupResult, error)
}

type UserCreatedHook interface {
	OnUserCreated(ctx context.Context, user service.AuthUser) error
}

// TriggerDeps are the services reacting to store events.
type TriggerDeps struct {
	Budget   ItemTracker
	Lists    ListHydrator
	Contacts ContactMatcher
	Presence PresenceSyncer
	Chat     UserCreatedHook
	Metrics  *metrics.Metrics
}

// TriggerHandler receives store event webhooks. Processing failures are
// logged, counted and reported, and the event is still acknowledged so the
// sender does not redeliver it. Only malformed payloads are rejected.
type TriggerHandler struct {
	deps TriggerDeps
}

func NewTriggerHandler(deps TriggerDeps) *TriggerHandler {
	return &TriggerHandler{deps: deps}
}

type TriggerAck struct {
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
	Result    any    `json:"result,omitempty"`
}

type ContactSyncCreatedRequest struct {
	UserID string `json:"userId"`
}

type PresenceWrittenRequest struct {
	UserID string                 `json:"userId"`
	Status *domain.PresenceStatus `json:"status"`
}

// ItemWritten feeds an item change to the budget tracker and refreshes the
// list's hydration summary.
func (h *TriggerHandler) ItemWritten(w http.ResponseWriter, r *http.Request) {
	var change service.ItemWrite
	if err := api.DecodeJSON(r, &change); err != nil {
		api.HandleError(w, err)
		return
	}
	if change.ListID == "" || change.ItemID == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "trigger.items_written", telemetry.SpanAttributes{
		ListID:    change.ListID,
		Operation: "item_written",
	})
	defer span.End()

	ack := TriggerAck{Processed: true}
	var failures []error
	alert, err := h.deps.Budget.OnItemWritten(ctx, change)
	if err != nil {
		h.failed(ctx, "budget_tracking", err)
		failures = append(failures, err)
	} else if alert != nil {
		ack.Result = alert
	}
	if _, err := h.deps.Lists.Hydrate(ctx, change.ListID); err != nil {
		h.failed(ctx, "list_hydration", err)
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		ack = TriggerAck{Processed: false, Error: errors.Join(failures...).Error()}
	}

	api.Success(w, http.StatusOK, ack)
}

func (h *TriggerHandler) ContactSyncCreated(w http.ResponseWriter, r *http.Request) {
	var req ContactSyncCreatedRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	if req.UserID == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "trigger.contact_sync", telemetry.SpanAttributes{
		UserID:    req.UserID,
		Operation: "match_contacts",
	})
	defer span.End()

	result, err := h.deps.Contacts.MatchContacts(ctx, req.UserID)
	if err != nil {
		api.Success(w, http.StatusOK, h.failed(ctx, "contact_sync", err))
		return
	}
	ack := TriggerAck{Processed: true}
	if result != nil {
		ack.Result = map[string]int{"matches": result.TotalMatches, "processed": result.TotalProcessed}
	}
	api.Success(w, http.StatusOK, ack)
}

// PresenceWritten mirrors a realtime status change. A missing status means
// the realtime entry was deleted.
func (h *TriggerHandler) PresenceWritten(w http.ResponseWriter, r *http.Request) {
	var req PresenceWrittenRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	if req.UserID == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	if err := h.deps.Presence.Sync(r.Context(), req.UserID, req.Status); err != nil {
		api.Success(w, http.StatusOK, h.failed(r.Context(), "presence_sync", err))
		return
	}
	api.Success(w, http.StatusOK, TriggerAck{Processed: true})
}

// PresenceCleanup runs one stale presence sweep for an external scheduler.
func (h *TriggerHandler) PresenceCleanup(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), "trigger.presence_cleanup", telemetry.SpanAttributes{
		Operation: "presence_cleanup",
	})
	defer span.End()

	result, err := h.deps.Presence.Cleanup(ctx)
	if err != nil {
		ack := h.failed(ctx, "presence_cleanup", err)
		ack.Result = result
		api.Success(w, http.StatusOK, ack)
		return
	}
	api.Success(w, http.StatusOK, TriggerAck{Processed: true, Result: result})
}

func (h *TriggerHandler) UserCreated(w http.ResponseWriter, r *http.Request) {
	var user service.AuthUser
	if err := api.DecodeJSON(r, &user); err != nil {
		api.HandleError(w, err)
		return
	}
	if user.UID == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	if err := h.deps.Chat.OnUserCreated(r.Context(), user); err != nil {
		api.Success(w, http.StatusOK, h.failed(r.Context(), "user_created", err))
		return
	}
	api.Success(w, http.StatusOK, TriggerAck{Processed: true})
}

func (h *TriggerHandler) failed(ctx context.Context, trigger string, err error) TriggerAck {
	log.Ctx(ctx).Error().Err(err).Str("trigger", trigger).Msg("trigger processing failed")
	h.deps.Metrics.TriggerError(trigger)
	telemetry.CaptureError(ctx, err)
	return TriggerAck{Processed: false, Error: err.Error()}
}
