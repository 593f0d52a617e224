package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionLoadWithoutCookieCreatesNew(t *testing.T) {
	sm := newTestSessionManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.User())
}

func TestSessionCommitPersistsAndReloads(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)

	sess.SetUser("42")
	sess.Set("theme", "dark")
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Guardado."})

	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "42", loaded.User())
	assert.Equal(t, "dark", loaded.Get("theme"))

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
	assert.Equal(t, "Guardado.", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionDestroyDeletesAndExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetUser("7")

	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))
	cookie := w.Result().Cookies()[0]

	sm.Destroy(sess)
	w2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w2, sess))

	expired := w2.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Equal(t, -1, expired[0].MaxAge)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookie)
	loaded, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	assert.Empty(t, loaded.User(), "destroyed session must not retain the user")
}

func TestSessionLoadWithStaleCookieStartsFresh(t *testing.T) {
	sm := newTestSessionManager(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "test_session", Value: "no-longer-in-redis"})
	sess, err := sm.Load(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "no-longer-in-redis", sess.ID)
	assert.Empty(t, sess.User())
}
