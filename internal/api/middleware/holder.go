package middleware

import (
	"context"
	"net/http"
)

const userHolderKey contextKey = "user_holder"

// userHolder lets outer middleware see the caller resolved by inner auth
// middleware once the request has been served.
type userHolder struct {
	userID string
}

// ensureUserHolder returns r carrying a holder, reusing one set further out.
func ensureUserHolder(r *http.Request) (*http.Request, *userHolder) {
	if h := userHolderFrom(r.Context()); h != nil {
		return r, h
	}
	h := &userHolder{}
	return r.WithContext(context.WithValue(r.Context(), userHolderKey, h)), h
}

func userHolderFrom(ctx context.Context) *userHolder {
	h, _ := ctx.Value(userHolderKey).(*userHolder)
	return h
}
