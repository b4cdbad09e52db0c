package luma

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

// GuestStatus is the approval/attendance state Luma keeps per guest
type GuestStatus string

const (
	GuestStatusCheckedIn GuestStatus = "checked_in"
)

// String returns the string representation of GuestStatus
func (s GuestStatus) String() string {
	return string(s)
}

// LooseString decodes a JSON string or number as text. Any other value
// decodes as empty, so one odd record cannot fail a whole guest list.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		*s = ""
	case trimmed[0] == '"':
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	case trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'):
		var n jsoniter.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*s = LooseString(n.String())
	default:
		*s = ""
	}
	return nil
}

// Ticket is one ticket held by a guest. Either key may identify it.
type Ticket struct {
	TicketKey LooseString `json:"ticket_key"`
	PK        LooseString `json:"pk"`
}

// Guest is the subset of a Luma guest record used for resolution
type Guest struct {
	GuestID  LooseString `json:"guest_id"`
	ID       LooseString `json:"id"`
	GuestKey LooseString `json:"guest_key"`
	Key      LooseString `json:"key"`
	PK       LooseString `json:"pk"`
	Tickets  ticketList  `json:"tickets"`
}

// Identifier returns the id to use when updating the guest
func (g Guest) Identifier() string {
	if g.GuestID != "" {
		return string(g.GuestID)
	}
	return string(g.ID)
}

// Keys returns every non-empty alias a scanned ticket key may match
func (g Guest) Keys() []string {
	keys := make([]string, 0, 3+2*len(g.Tickets))
	for _, k := range []LooseString{g.GuestKey, g.Key, g.PK} {
		if k != "" {
			keys = append(keys, string(k))
		}
	}
	for _, t := range g.Tickets {
		if t.TicketKey != "" {
			keys = append(keys, string(t.TicketKey))
		}
		if t.PK != "" {
			keys = append(keys, string(t.PK))
		}
	}
	return keys
}

// Matches reports whether key equals one of the guest's aliases exactly
func (g Guest) Matches(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range g.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// ticketList tolerates a tickets field that is not an array
type ticketList []Ticket

func (tl *ticketList) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		*tl = nil
		return nil
	}
	var tickets []Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return err
	}
	*tl = tickets
	return nil
}

// guestLookupResponse is the body of get-guest
type guestLookupResponse struct {
	GuestID LooseString `json:"guest_id"`
	ID      LooseString `json:"id"`
}

func (r guestLookupResponse) identifier() string {
	if r.GuestID != "" {
		return string(r.GuestID)
	}
	return string(r.ID)
}

// guestListResponse is the body of get-guests
type guestListResponse struct {
	Guests []Guest `json:"guests"`
}

// updateGuestStatusRequest is the body of update-guest-status
type updateGuestStatusRequest struct {
	EventID string      `json:"event_id"`
	GuestID string      `json:"guest_id"`
	Status  GuestStatus `json:"status"`
}
