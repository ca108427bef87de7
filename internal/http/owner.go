package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/google/uuid"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderSessionID = "X-Session-Id"

	maxSessionKeyLen = 64
)

var errSessionKeyTooLong = errors.New("session key is too long")

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

// sessionKey reads the anonymous session key from the cookie, then the header.
func (h *Handler) sessionKey(r *http.Request) (string, error) {
	key := ""
	if c, err := r.Cookie(h.SessionCookie); err == nil {
		key = strings.TrimSpace(c.Value)
	}
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(HeaderSessionID))
	}
	if len(key) > maxSessionKeyLen {
		return "", errSessionKeyTooLong
	}
	return key, nil
}

// resolveOwner picks the cart owner for a request. Signed-in callers own by
// user id; everyone else gets a session key, issued as a cookie on first use.
func (h *Handler) resolveOwner(w http.ResponseWriter, r *http.Request) (cart.Owner, error) {
	if uid := userID(r); uid != "" {
		return cart.UserOwner(uid), nil
	}

	key, err := h.sessionKey(r)
	if err != nil {
		return cart.Owner{}, err
	}
	if key == "" {
		key = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     h.SessionCookie,
			Value:    key,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cart.SessionOwner(key), nil
}

// requireUser writes 401 and returns false when no user id is present.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing required header: "+HeaderUserID)
		return "", false
	}
	return uid, true
}
