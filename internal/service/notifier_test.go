package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentFailures_KeepsNewestFirst(t *testing.T) {
	r := NewRecentFailures(2)
	r.Notify(Failure{Op: "a"})
	r.Notify(Failure{Op: "b"})
	r.Notify(Failure{Op: "c"})

	got := r.List()
	assert.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Op)
	assert.Equal(t, "b", got[1].Op)
}

func TestMultiNotifier_FansOut(t *testing.T) {
	a, b := &mockNotifier{}, &mockNotifier{}
	MultiNotifier{a, b, LogNotifier{}}.Notify(Failure{Op: "x", Err: errors.New("boom")})

	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
}

func TestRemoteError_Matching(t *testing.T) {
	cause := errors.New("boom")
	err := error(&RemoteError{Op: "load cart", Err: cause})

	assert.ErrorIs(t, err, ErrRemoteFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, "load cart: boom", err.Error())
}
