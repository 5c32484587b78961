package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/identity"
	"github.com/sharetube/watchparty/internal/service/room"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// authenticate reads the bearer token from the Authorization header or the
// token query parameter, the latter for browsers opening websockets.
func (c controller) authenticate(r *http.Request) (identity.Identity, error) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}

	if token == "" {
		return identity.Identity{}, fmt.Errorf("%w: token was not provided", room.ErrUnauthenticated)
	}

	id, err := c.auth.Parse(token)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", room.ErrUnauthenticated, err)
	}

	return id, nil
}
