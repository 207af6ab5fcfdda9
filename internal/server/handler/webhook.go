// Package handler provides the HTTP handlers for the webhook ingress.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/codehawk/codehawk/internal/config"
	"github.com/codehawk/codehawk/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub. It validates and
// classifies each event, enqueues actionable ones as work items, and always
// responds before any pipeline work happens.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher core.Dispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(cfg *config.Config, dispatcher core.Dispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// webhookResponse is the JSON body of every webhook reply.
type webhookResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Handle processes one GitHub webhook request.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		h.respond(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	eventType := github.WebHookType(r)
	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "type", eventType, "error", err)
		h.respond(w, http.StatusBadRequest, "Could not parse webhook")
		return
	}

	switch e := event.(type) {
	case *github.PingEvent:
		h.respond(w, http.StatusOK, "pong")
	case *github.PullRequestEvent:
		h.handlePullRequest(w, r, e)
	case *github.InstallationRepositoriesEvent:
		h.handleInstallationRepositories(w, r, e)
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		h.respond(w, http.StatusOK, "Event Processed Successfully")
	}
}

// handlePullRequest enqueues a review work item for actionable pull-request
// events. The response goes out as soon as the item is queued; the sender
// never sees pipeline-level outcomes.
func (h *WebhookHandler) handlePullRequest(w http.ResponseWriter, r *http.Request, event *github.PullRequestEvent) {
	item, err := core.WorkItemFromPullRequestEvent(event)
	if err != nil {
		var notActionable *core.ErrNotActionable
		if errors.As(err, &notActionable) {
			h.logger.Debug("ignoring pull request event", "reason", notActionable.Reason)
			h.respond(w, http.StatusOK, "Event Processed Successfully")
			return
		}
		h.logger.Error("failed to classify pull request event", "error", err)
		h.respond(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), item); err != nil {
		h.logger.Error("failed to dispatch work item", "item", item.Key(), "error", err)
		h.respond(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.logger.Info("work item dispatched", "event", item.Name, "item", item.Key())
	h.respond(w, http.StatusOK, "Event Processed Successfully")
}

// handleInstallationRepositories enqueues an indexing work item for every
// repository added to the App installation.
func (h *WebhookHandler) handleInstallationRepositories(w http.ResponseWriter, r *http.Request, event *github.InstallationRepositoriesEvent) {
	if event.GetAction() != "added" {
		h.respond(w, http.StatusOK, "Event Processed Successfully")
		return
	}

	installationID := event.GetInstallation().GetID()
	for _, repo := range event.RepositoriesAdded {
		owner, name, err := core.SplitFullName(repo.GetFullName())
		if err != nil {
			h.logger.Warn("skipping repository with invalid full name", "full_name", repo.GetFullName())
			continue
		}
		item := &core.WorkItem{
			Name: core.EventRepositoryConnected,
			RepositoryConnected: &core.RepositoryConnected{
				Owner:          owner,
				Repo:           name,
				InstallationID: installationID,
			},
		}
		if err := h.dispatcher.Dispatch(r.Context(), item); err != nil {
			h.logger.Error("failed to dispatch index work item", "item", item.Key(), "error", err)
			h.respond(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		h.logger.Info("work item dispatched", "event", item.Name, "item", item.Key())
	}

	h.respond(w, http.StatusOK, "Event Processed Successfully")
}

func (h *WebhookHandler) respond(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(webhookResponse{Message: message, Status: status}); err != nil {
		h.logger.Error("failed to write webhook response", "error", err)
	}
}
