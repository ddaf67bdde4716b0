package models

import "time"

type NotificationType string

const (
	NotificationFollow        NotificationType = "follow"
	NotificationReblog        NotificationType = "reblog"
	NotificationFavourite     NotificationType = "favourite"
	NotificationMention       NotificationType = "mention"
	NotificationStatus        NotificationType = "status"
	NotificationPoll          NotificationType = "poll"
	NotificationUpdate        NotificationType = "update"
	NotificationFollowRequest NotificationType = "follow_request"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationFollow:        {},
	NotificationReblog:        {},
	NotificationFavourite:     {},
	NotificationMention:       {},
	NotificationStatus:        {},
	NotificationPoll:          {},
	NotificationUpdate:        {},
	NotificationFollowRequest: {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	AccountID string           `json:"account_id"`
	StatusID  string           `json:"status_id,omitempty"`
	// GroupKey is set when the server already grouped the notification.
	GroupKey  string    `json:"group_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) ItemID() string {
	return n.ID
}

type NotificationGroup struct {
	GroupKey        string           `json:"group_key"`
	Type            NotificationType `json:"type"`
	Count           int              `json:"count"`
	MostRecentID    int64            `json:"most_recent_id"`
	MostRecentAt    time.Time        `json:"most_recent_at"`
	RelatedStatusID string           `json:"related_status_id,omitempty"`
}

// MetricsNotificationGroup is one persisted aggregate row, unique per
// server, account and group key.
type MetricsNotificationGroup struct {
	Server          string           `json:"server"`
	AccountID       string           `json:"account_id"`
	GroupKey        string           `json:"group_key"`
	Type            NotificationType `json:"type"`
	Count           int              `json:"count"`
	MostRecentID    int64            `json:"most_recent_id"`
	MostRecentAt    time.Time        `json:"most_recent_at"`
	DayStart        time.Time        `json:"day_start"`
	RelatedStatusID string           `json:"related_status_id,omitempty"`
}

func MetricsRowKey(server, accountID, groupKey string) string {
	return server + "|" + accountID + "|" + groupKey
}

func (m MetricsNotificationGroup) RowKey() string {
	return MetricsRowKey(m.Server, m.AccountID, m.GroupKey)
}

// MetricsFilter selects rows of one account on one server. GroupKey and
// DayStartBefore narrow the selection when set.
type MetricsFilter struct {
	Server         string
	AccountID      string
	GroupKey       string
	DayStartBefore time.Time
}

func (f MetricsFilter) Match(row MetricsNotificationGroup) bool {
	if row.Server != f.Server || row.AccountID != f.AccountID {
		return false
	}
	if f.GroupKey != "" && row.GroupKey != f.GroupKey {
		return false
	}
	if !f.DayStartBefore.IsZero() && !row.DayStart.Before(f.DayStartBefore) {
		return false
	}
	return true
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
