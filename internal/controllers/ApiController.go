package controllers

import (
	"context"
	"errors"
	"net/http"

	"feedsync/internal/models"
	"feedsync/internal/providers"
	"feedsync/internal/services"
	"feedsync/internal/timeline"

	json "github.com/goccy/go-json"
)

type ApiController struct {
	logger        providers.Logger
	home          timeline.FeedReconcilerInterface
	notifications timeline.NotificationFeedInterface
	store         services.MetricsStoreInterface
	identity      providers.Identity
}

func NewApiController(
	logger providers.Logger,
	home timeline.FeedReconcilerInterface,
	notifications timeline.NotificationFeedInterface,
	store services.MetricsStoreInterface,
	identity providers.Identity,
) *ApiController {
	return &ApiController{
		logger:        logger,
		home:          home,
		notifications: notifications,
		store:         store,
		identity:      identity,
	}
}

type feedResponse[T any] struct {
	State models.FeedState[T] `json:"state"`
	Error string              `json:"error,omitempty"`
}

type collapseResponse struct {
	ID        string `json:"id"`
	Collapsed bool   `json:"collapsed"`
	Found     bool   `json:"found"`
}

type notificationGroupView struct {
	models.ConsolidatedNotification
	Count int `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeFeed answers a fetch. A failed fetch still carries the state the feed
// kept; the status tells the caller whether the server was reached.
func writeFeed[T any](w http.ResponseWriter, logger providers.Logger, state models.FeedState[T], err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, feedResponse[T]{State: state})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Debugf(providers.TypeGet, "fetch abandoned: %s", err)
		writeJSON(w, http.StatusServiceUnavailable, feedResponse[T]{State: state, Error: err.Error()})
		return
	}
	status := http.StatusBadGateway
	if models.KindOf(err) == models.Unauthorized {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, feedResponse[T]{State: state, Error: models.KindOf(err).String()})
}

func (ac *ApiController) GetTimeline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ac.home.State())
}

func (ac *ApiController) RefreshTimeline(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force")
	state, err := ac.home.FetchNewest(r.Context(), force == "1" || force == "true")
	writeFeed(w, ac.logger, state, err)
}

func (ac *ApiController) NextTimelinePage(w http.ResponseWriter, r *http.Request) {
	state, err := ac.home.FetchNextPage(r.Context())
	writeFeed(w, ac.logger, state, err)
}

func (ac *ApiController) GetCollapsed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ac.home.Collapsed())
}

func (ac *ApiController) ToggleCollapse(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	collapsed, found := ac.home.ToggleCollapse(id)
	writeJSON(w, http.StatusOK, collapseResponse{ID: id, Collapsed: collapsed, Found: found})
}

func (ac *ApiController) GetNotifications(w http.ResponseWriter, r *http.Request) {
	filter := models.NotificationType(r.URL.Query().Get("filter"))
	if filter != "" && !filter.Valid() {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	groups := ac.notifications.Groups(filter)
	views := make([]notificationGroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, notificationGroupView{ConsolidatedNotification: g, Count: g.DisplayCount()})
	}
	writeJSON(w, http.StatusOK, views)
}

func (ac *ApiController) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force")
	state, err := ac.notifications.FetchNewest(r.Context(), force == "1" || force == "true")
	writeFeed(w, ac.logger, state, err)
}

func (ac *ApiController) NextNotificationsPage(w http.ResponseWriter, r *http.Request) {
	state, err := ac.notifications.FetchNextPage(r.Context())
	writeFeed(w, ac.logger, state, err)
}

func (ac *ApiController) GetNotificationMetrics(w http.ResponseWriter, r *http.Request) {
	rows, err := ac.store.Groups(r.Context(), ac.identity.CurrentViewerAccountID(), ac.identity.Server())
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Failed to read notification metrics: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.MetricsNotificationGroup{}
	}
	writeJSON(w, http.StatusOK, rows)
}
