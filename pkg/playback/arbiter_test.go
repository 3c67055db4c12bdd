package playback_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/playback"
	"github.com/aretw0/speeza/pkg/speech/mock"
)

func TestArbiter_CrossControllerStop(t *testing.T) {
	engine := &mock.Engine{}
	arb := playback.NewArbiter()
	session := playback.NewController(engine, catalog(), playback.WithArbiter(arb), playback.WithName("session"))
	quick := playback.NewController(engine, catalog(), playback.WithArbiter(arb), playback.WithName("quick"))
	ctx := context.Background()

	require.Equal(t, playback.Speaking, session.Play(ctx, note("draft preview")))
	require.Equal(t, playback.Speaking, quick.Switch(ctx, note("list item")))

	assert.Equal(t, playback.Idle, session.State(), "quick play stops the session preview")
	active, ok := arb.Active()
	require.True(t, ok)
	assert.Same(t, quick, active)

	require.Equal(t, playback.Speaking, session.Play(ctx, note("preview again")))
	assert.Equal(t, playback.Idle, quick.State(), "and vice versa")
	assert.True(t, engine.IsSpeaking())
}

func TestArbiter_StopNote(t *testing.T) {
	engine := &mock.Engine{}
	arb := playback.NewArbiter()
	c := playback.NewController(engine, catalog(), playback.WithArbiter(arb))
	ctx := context.Background()

	src := note("to be deleted")
	c.Play(ctx, src)

	assert.False(t, arb.StopNote(uuid.New()), "other notes leave playback alone")
	assert.Equal(t, playback.Speaking, c.State())

	assert.True(t, arb.StopNote(src.NoteID.UUID))
	assert.Equal(t, playback.Idle, c.State())
	_, ok := arb.Active()
	assert.False(t, ok)
	assert.False(t, arb.StopNote(src.NoteID.UUID))
}

func TestArbiter_StopAll(t *testing.T) {
	engine := &mock.Engine{}
	arb := playback.NewArbiter()
	c := playback.NewController(engine, catalog(), playback.WithArbiter(arb))

	c.Play(context.Background(), playback.Source{Text: "draft", Language: "en-US", Rate: 0.5})
	arb.StopAll()
	assert.Equal(t, playback.Idle, c.State())
	assert.False(t, engine.IsSpeaking())
}
