package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCursor_HasMore(t *testing.T) {
	var nilCursor *PageCursor
	assert.False(t, nilCursor.HasMore())
	assert.False(t, (&PageCursor{MinID: "5"}).HasMore())
	assert.True(t, (&PageCursor{MaxID: "3"}).HasMore())
}

func TestFeedState_JSON(t *testing.T) {
	state := DisplayingState([]Post{{ID: "1"}}, HasNextPage)
	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "displaying", decoded["phase"])
	assert.Equal(t, "has_next_page", decoded["paging"])
}

func TestFeedState_ErrorJSON(t *testing.T) {
	data, err := json.Marshal(ErrorState[Post](Unauthorized))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"unauthorized"`)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrNone, KindOf(nil))
	assert.Equal(t, Decoding, KindOf(NewTransportError(Decoding, errors.New("bad json"))))
	wrapped := fmt.Errorf("fetch home: %w", NewTransportError(Unauthorized, nil))
	assert.Equal(t, Unauthorized, KindOf(wrapped))
	assert.Equal(t, NetworkUnavailable, KindOf(errors.New("boom")))
}

func TestTransportError_Unwrap(t *testing.T) {
	err := NewTransportError(NetworkUnavailable, context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "transport: network_unavailable: context deadline exceeded", err.Error())
	assert.Equal(t, "transport: decoding", NewTransportError(Decoding, nil).Error())
}

func TestStreamEventConstructors(t *testing.T) {
	p := Post{ID: "1", ReshareOf: &Post{ID: "0"}}
	assert.Equal(t, EventCreate, CreateEvent(p).Kind)
	assert.Equal(t, "1", EditEvent(p).PostID)
	assert.Equal(t, "9", DeleteEvent("9").PostID)
	assert.Equal(t, "0", p.ReshareTargetID())
	assert.Equal(t, "", Post{}.ReshareTargetID())
	assert.Equal(t, "delete", EventDelete.String())
}
