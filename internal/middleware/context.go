package middleware

import (
	"github.com/labstack/echo/v4"

	"adeptify/internal/auth"
	"adeptify/internal/model"
	"adeptify/internal/service"
)

const (
	identityKey    = "identity"
	userKey        = "user"
	activityTagKey = "activity_tag"
)

// IdentityFrom returns the identity attached by Guard.Authenticate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// UserFrom returns the user loaded while authenticating the request.
func UserFrom(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userKey).(*model.User)
	return u, ok && u != nil
}

// SetIdentity attaches an identity to the request context.
func SetIdentity(c echo.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// Meta extracts the client attributes recorded with sessions and activity.
func Meta(c echo.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

type activityTag struct {
	table    string
	recordID string
}

// TagActivity names the record a handler mutated. The activity logger uses
// the tag instead of guessing the target from the URL.
func TagActivity(c echo.Context, table, recordID string) {
	c.Set(activityTagKey, activityTag{table: table, recordID: recordID})
}
