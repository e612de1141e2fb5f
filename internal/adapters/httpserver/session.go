package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/buildmart/internal/adapters/kv"
	"github.com/phenrril/buildmart/internal/domain"
)

const visitorCookie = "bm_visitor"

func (s *Server) sign(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// readVisitor returns the visitor id from the signed cookie, or "".
func (s *Server) readVisitor(r *http.Request) string {
	c, err := r.Cookie(visitorCookie)
	if err != nil {
		return ""
	}
	parts := strings.SplitN(c.Value, ".", 2)
	if len(parts) != 2 {
		return ""
	}
	if !hmac.Equal([]byte(parts[0]), []byte(s.sign(parts[1]))) {
		return ""
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return ""
	}
	return parts[1]
}

func (s *Server) writeVisitor(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    s.sign(id) + "." + id,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

const visitorKey ctxKey = iota + 1

// Visitor resolves the visitor id once per request, issuing a new signed
// cookie for first-time visitors.
func (s *Server) Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/public/") {
			next.ServeHTTP(w, r)
			return
		}
		id := s.readVisitor(r)
		if id == "" {
			id = uuid.NewString()
			s.writeVisitor(w, id)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey, id)))
	})
}

// visitorStore is the visitor's private slice of the shared store.
func (s *Server) visitorStore(w http.ResponseWriter, r *http.Request) domain.KeyValueStore {
	id, _ := r.Context().Value(visitorKey).(string)
	if id == "" {
		if id = s.readVisitor(r); id == "" {
			id = uuid.NewString()
			s.writeVisitor(w, id)
		}
	}
	return kv.ForVisitor(s.store, id)
}
