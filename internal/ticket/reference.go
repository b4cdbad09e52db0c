package ticket

import (
	"net/url"
	"strings"
)

// Reference identifies one ticket inside one event. Fields that could not be
// extracted from the scanned payload are left empty.
type Reference struct {
	EventID   string `json:"eventId,omitempty"`
	TicketKey string `json:"pk,omitempty"`
}

// Valid reports whether both the event and the ticket key are present.
// A check-in must never be attempted for an invalid reference.
func (r Reference) Valid() bool {
	return r.EventID != "" && r.TicketKey != ""
}

// Parse extracts a Reference from a scanned or pasted ticket link.
//
// Two path shapes are recognised:
//
//	/check-in/{eventId}?pk={ticketKey}
//	/e/ticket/{eventId}?pk={ticketKey}
//
// Anything that is not an absolute URL yields an empty Reference.
func Parse(raw string) Reference {
	var ref Reference

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ref
	}

	segments := pathSegments(u.EscapedPath())
	for i, seg := range segments {
		if i+1 >= len(segments) {
			break
		}
		switch {
		case seg == "check-in":
			ref.EventID = segments[i+1]
		case seg == "ticket" && i > 0 && segments[i-1] == "e":
			ref.EventID = segments[i+1]
		}
		if ref.EventID != "" {
			break
		}
	}

	ref.TicketKey = u.Query().Get("pk")
	return ref
}

// pathSegments splits an escaped path so an encoded slash stays inside its
// segment. Segments that do not unescape are dropped.
func pathSegments(escaped string) []string {
	parts := strings.Split(escaped, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		seg, err := url.PathUnescape(part)
		if err != nil || seg == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}
