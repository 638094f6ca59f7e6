package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditermin/booking-api/pkg/httputil"
)

const (
	HeaderBookingSession = "X-Booking-Session"
	CookieBookingSession = "booking_session"
	ContextSessionID     = "session_id"
)

// BookingSession extracts the booking session ID from the request and
// puts it on the context. Requests without a session are rejected;
// starting a booking is the only operation that runs without one.
func BookingSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionID(c)
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, httputil.Response{
				Status:  "error",
				Message: "missing booking session",
			})
			return
		}

		c.Set(ContextSessionID, sid)
		c.Next()
	}
}

// SessionID reads the session ID from the header or, failing that, the
// session cookie. Returns "" when the request carries neither.
func SessionID(c *gin.Context) string {
	if sid := c.GetHeader(HeaderBookingSession); sid != "" {
		return sid
	}
	if sid, err := c.Cookie(CookieBookingSession); err == nil {
		return sid
	}
	return ""
}
