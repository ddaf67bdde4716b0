package transport

import (
	"time"

	"feedsync/internal/models"

	"github.com/goccy/go-json"
)

// The subset of the Mastodon entities the engine reads.

type accountJSON struct {
	ID string `json:"id"`
}

type statusJSON struct {
	ID          string      `json:"id"`
	Account     accountJSON `json:"account"`
	InReplyToID *string     `json:"in_reply_to_id"`
	Reblog      *statusJSON `json:"reblog"`
	CreatedAt   time.Time   `json:"created_at"`
	EditedAt    *time.Time  `json:"edited_at"`
}

type notificationJSON struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	GroupKey  string      `json:"group_key"`
	CreatedAt time.Time   `json:"created_at"`
	Account   accountJSON `json:"account"`
	Status    *statusJSON `json:"status"`
}

func (s statusJSON) post() models.Post {
	p := models.Post{
		ID:        s.ID,
		AuthorID:  s.Account.ID,
		CreatedAt: s.CreatedAt,
		EditedAt:  s.EditedAt,
	}
	if s.InReplyToID != nil {
		p.ParentID = *s.InReplyToID
	}
	if s.Reblog != nil {
		original := s.Reblog.post()
		p.ReshareOf = &original
	}
	return p
}

func (n notificationJSON) notification() models.Notification {
	out := models.Notification{
		ID:        n.ID,
		Type:      models.NotificationType(n.Type),
		AccountID: n.Account.ID,
		GroupKey:  n.GroupKey,
		CreatedAt: n.CreatedAt,
	}
	if n.Status != nil {
		out.StatusID = n.Status.ID
	}
	return out
}

func decodeStatuses(body []byte) ([]models.Post, error) {
	var raw []statusJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Post, 0, len(raw))
	for _, s := range raw {
		out = append(out, s.post())
	}
	return out, nil
}

func decodeStatus(body []byte) (models.Post, error) {
	var raw statusJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Post{}, err
	}
	return raw.post(), nil
}

func decodeNotifications(body []byte) ([]models.Notification, error) {
	var raw []notificationJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(raw))
	for _, n := range raw {
		out = append(out, n.notification())
	}
	return out, nil
}

func decodeNotification(body []byte) (models.Notification, error) {
	var raw notificationJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Notification{}, err
	}
	return raw.notification(), nil
}
