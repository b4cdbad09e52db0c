package luma

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "secret", BaseURL: srv.URL})
}

func TestGetGuest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathGetGuest, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "ev_1", r.URL.Query().Get("event_id"))
		assert.Equal(t, "g 1&x", r.URL.Query().Get("pk"))
		io.WriteString(w, `{"id":"gst-1"}`)
	})

	id, err := client.GetGuest(context.Background(), "ev_1", "g 1&x")
	require.NoError(t, err)
	assert.Equal(t, "gst-1", id)
}

func TestGetGuestPrefersGuestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"guest_id":"gst-a","id":"gst-b"}`)
	})

	id, err := client.GetGuest(context.Background(), "ev", "pk")
	require.NoError(t, err)
	assert.Equal(t, "gst-a", id)
}

func TestGetGuestNonOKIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not available", http.StatusForbidden)
	})

	id, err := client.GetGuest(context.Background(), "ev", "pk")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGetGuestMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":`)
	})

	_, err := client.GetGuest(context.Background(), "ev", "pk")
	assert.Error(t, err)
}

func TestListGuestsShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"envelope", `{"guests":[{"id":"a"},{"id":"b"}]}`, 2},
		{"bare array", `[{"id":"a"}]`, 1},
		{"guests not an array", `{"guests":{"id":"a"}}`, 0},
		{"empty object", `{}`, 0},
		{"numeric id on another guest", `{"guests":[{"id":7,"key":"other"},{"guest_id":"gst-1","pk":"g-1"}]}`, 2},
		{"odd scalar types", `[{"id":true,"pk":{"x":1},"key":null,"tickets":[{"pk":[1]}]}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, pathGetGuests, r.URL.Path)
				io.WriteString(w, tt.body)
			})

			guests, err := client.ListGuests(context.Background(), "ev")
			require.NoError(t, err)
			assert.Len(t, guests, tt.want)
		})
	}
}

func TestListGuestsNumericFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"guests":[
			{"id":7,"key":"other"},
			{"guest_id":"gst-1","pk":"g-1"},
			{"id":"gst-2","tickets":[{"ticket_key":12345}]}
		]}`)
	})

	guests, err := client.ListGuests(context.Background(), "ev")
	require.NoError(t, err)
	require.Len(t, guests, 3)

	assert.Equal(t, "7", guests[0].Identifier())
	assert.True(t, guests[1].Matches("g-1"))
	assert.Equal(t, "gst-1", guests[1].Identifier())
	assert.True(t, guests[2].Matches("12345"))
}

func TestGetGuestNumericID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":42}`)
	})

	id, err := client.GetGuest(context.Background(), "ev", "pk")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestListGuestsNonOKIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	guests, err := client.ListGuests(context.Background(), "ev")
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestUpdateGuestStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathUpdateGuestStatus, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"event_id":"ev","guest_id":"gst-1","status":"checked_in"}`, string(body))
		io.WriteString(w, `{}`)
	})

	err := client.UpdateGuestStatus(context.Background(), "ev", "gst-1", GuestStatusCheckedIn)
	assert.NoError(t, err)
}

func TestUpdateGuestStatusRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, "guest is not approved")
	})

	err := client.UpdateGuestStatus(context.Background(), "ev", "gst-1", GuestStatusCheckedIn)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "guest is not approved", apiErr.Body)
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, client.Configured())

	_, err := client.GetGuest(context.Background(), "ev", "pk")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL})

	_, err := client.ListGuests(context.Background(), "ev")
	assert.Error(t, err)
}

func TestGuestKeys(t *testing.T) {
	var guests []Guest
	err := json.Unmarshal([]byte(`[
		{"id":"a","guest_key":"gk","key":"k","pk":"p","tickets":[{"ticket_key":"tk"},{"pk":"tp"}]},
		{"guest_id":"b","tickets":"none"}
	]`), &guests)
	require.NoError(t, err)
	require.Len(t, guests, 2)

	assert.Equal(t, []string{"gk", "k", "p", "tk", "tp"}, guests[0].Keys())
	assert.True(t, guests[0].Matches("tp"))
	assert.False(t, guests[0].Matches("TP"))
	assert.False(t, guests[0].Matches(""))
	assert.Equal(t, "a", guests[0].Identifier())

	assert.Empty(t, guests[1].Keys())
	assert.Equal(t, "b", guests[1].Identifier())
}
