// Package lumatest provides an in-process fake of the Luma guest API.
package lumatest

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"lumacheckin/internal/luma"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Update is one update-guest-status call received by the fake
type Update struct {
	EventID string `json:"event_id"`
	GuestID string `json:"guest_id"`
	Status  string `json:"status"`
}

// Server answers get-guest, get-guests and update-guest-status
type Server struct {
	*httptest.Server
	APIKey string

	mu           sync.Mutex
	direct       map[string]string
	listed       map[string][]luma.Guest
	rejectCode   int
	rejectBody   string
	updates      []Update
	calls        map[string]int
	unauthorized int
}

// NewServer starts a fake that accepts apiKey
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey: apiKey,
		direct: make(map[string]string),
		listed: make(map[string][]luma.Guest),
		calls:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/event/get-guest", s.getGuest)
	mux.HandleFunc("/v1/event/get-guests", s.getGuests)
	mux.HandleFunc("/v1/event/update-guest-status", s.updateGuestStatus)
	s.Server = httptest.NewServer(s.authorize(mux))
	return s
}

// AddDirectGuest makes get-guest resolve pk to guestID
func (s *Server) AddDirectGuest(eventID, pk, guestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct[eventID+"|"+pk] = guestID
}

// AddListedGuest adds a guest to the get-guests answer of eventID
func (s *Server) AddListedGuest(eventID string, guest luma.Guest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed[eventID] = append(s.listed[eventID], guest)
}

// RejectUpdates makes update-guest-status answer code with body
func (s *Server) RejectUpdates(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCode = code
	s.rejectBody = body
}

// Updates returns the accepted status updates
func (s *Server) Updates() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Update(nil), s.updates...)
}

// Calls returns how many requests hit path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests received on any path
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.unauthorized
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(luma.APIKeyHeader) != s.APIKey {
			s.mu.Lock()
			s.unauthorized++
			s.mu.Unlock()
			http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getGuest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	id, ok := s.direct[q.Get("event_id")+"|"+q.Get("pk")]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"message":"guest not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"guest_id": id})
}

func (s *Server) getGuests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	guests := append([]luma.Guest{}, s.listed[r.URL.Query().Get("event_id")]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"guests": guests})
}

func (s *Server) updateGuestStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectCode != 0 {
		w.WriteHeader(s.rejectCode)
		w.Write([]byte(s.rejectBody))
		return
	}
	s.updates = append(s.updates, u)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
