package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flaky struct{ ok bool }

func (f flaky) Error() string       { return "flaky" }
func (f flaky) IsRecoverable() bool { return f.ok }
func (f flaky) Suggestion() string  { return "retry" }

func TestWrapCategories(t *testing.T) {
	require.Nil(t, Wrap(nil))

	app := Wrap(fmt.Errorf("call: %w", flaky{ok: true}))
	require.Equal(t, CategoryAPI, app.Category)
	require.True(t, app.IsRecoverable())
	require.Equal(t, "retry", app.Suggestion())
	require.Equal(t, "call: flaky", app.Error())

	v := Wrap(Validation("title is required"))
	require.Equal(t, CategoryValidation, v.Category)
	require.ErrorIs(t, v, ErrValidation)
	require.False(t, v.IsRecoverable())
	require.NotEmpty(t, v.Suggestion())

	u := Wrap(errors.New("boom"))
	require.Equal(t, CategoryUnknown, u.Category)
	require.Equal(t, "boom", u.Error())

	require.Same(t, v, Wrap(fmt.Errorf("again: %w", v)))
}

func TestPersistence(t *testing.T) {
	cause := errors.New("disk full")
	p := Persistence(cause)
	require.Equal(t, CategoryPersistence, p.Category)
	require.ErrorIs(t, p, cause)
	require.Equal(t, "local storage failure: disk full", p.Error())
	require.False(t, p.IsRecoverable())
}

func TestRateLimitError(t *testing.T) {
	err := fmt.Errorf("login: %w", &RateLimitError{RetryAfter: 1500 * time.Millisecond})
	require.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, 1500*time.Millisecond, rl.RetryAfter)
	require.Equal(t, "login: rate limited, retry after 2s", err.Error())
}
