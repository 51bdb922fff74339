package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksClosedConversations(t *testing.T) {
	underlying := newUnderlying()
	mw, err := middleware.NewPIIMiddleware([]string{"^name$", "^email$"})
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	state := domain.NewState("pii", "L3", time.Now())
	state.Answers.Set("Q1", 0)
	state.Answers.Set(domain.AnswerName, "Ana")
	state.Answers.Set(domain.AnswerEmail, "ana@example.com")

	require.NoError(t, store.Save(ctx, "pii", state))
	open, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	name, _ := open.Answers.String(domain.AnswerName)
	assert.Equal(t, "Ana", name, "open conversations keep contact details")

	state.Mode = domain.ModeClosed
	state.Status = domain.StatusCompleted
	require.NoError(t, store.Save(ctx, "pii", state))

	name, _ = state.Answers.String(domain.AnswerName)
	assert.Equal(t, "Ana", name, "caller's state must not be modified")

	closed, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	name, _ = closed.Answers.String(domain.AnswerName)
	email, _ := closed.Answers.String(domain.AnswerEmail)
	assert.Equal(t, middleware.Mask, name)
	assert.Equal(t, middleware.Mask, email)
	q1, _ := closed.Answers.Int("Q1")
	assert.Equal(t, 0, q1)
	assert.Equal(t, []string{"Q1", "name", "email"}, closed.Answers.Keys())
}

func TestRedact(t *testing.T) {
	a := domain.NewAnswers()
	a.Set("email", "x@y.z")
	a.Set("Q7", 2)
	out, err := middleware.Redact(a, []string{"mail"})
	require.NoError(t, err)
	v, _ := out.String("email")
	assert.Equal(t, middleware.Mask, v)
	orig, _ := a.String("email")
	assert.Equal(t, "x@y.z", orig)

	_, err = middleware.Redact(a, []string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	underlying := newUnderlying()
	pii, err := middleware.NewPIIMiddleware([]string{"^email$"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := middleware.Chain(underlying, pii, enc)

	ctx := context.Background()
	state := domain.NewState("c", "L1", time.Now())
	state.Answers.Set("email", "a@b.co")
	state.Mode = domain.ModeClosed
	require.NoError(t, store.Save(ctx, "c", state))

	raw, err := underlying.Load(ctx, "c")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)

	loaded, err := store.Load(ctx, "c")
	require.NoError(t, err)
	v, _ := loaded.Answers.String("email")
	assert.Equal(t, middleware.Mask, v)
}

type downStore struct{ *memory.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestChain_ForwardsPing(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"^email$"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	type pinger interface{ Ping(context.Context) error }

	store := middleware.Chain(downStore{newUnderlying()}, pii, enc)
	p, ok := store.(pinger)
	require.True(t, ok)
	assert.EqualError(t, p.Ping(context.Background()), "connection refused")

	p = middleware.Chain(newUnderlying(), pii).(pinger)
	assert.NoError(t, p.Ping(context.Background()))
}
