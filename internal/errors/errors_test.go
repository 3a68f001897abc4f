package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Upstream("fetching holdings failed", cause)

	assert.True(t, IsUpstream(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsAutomation(err))
	assert.Equal(t, "fetching holdings failed: dial tcp: connection refused", err.Error())
}

func TestAppError_WrappedByFmt(t *testing.T) {
	err := fmt.Errorf("reminder: %w", Configuration("NTFY_TOPIC is not set"))

	assert.True(t, IsConfiguration(err))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NTFY_TOPIC is not set", appErr.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthorized(""), http.StatusUnauthorized},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Upstream("x", nil), http.StatusBadGateway},
		{Automation("x", nil), http.StatusBadGateway},
		{Configuration("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(Configurationf("%s missing", "DASHBOARD_URL")))
	assert.Equal(t, 1, ExitCode(Delivery("send failed", nil)))
	assert.Equal(t, 1, ExitCode(errors.New("other")))
}

func TestUnauthorized_DefaultMessage(t *testing.T) {
	assert.Equal(t, "authentication required", Unauthorized("").Message)
}
