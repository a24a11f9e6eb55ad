package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-console/shared/models"
)

func TestTracker_RejectsConcurrentWrite(t *testing.T) {
	tr := NewTracker()

	release, _, err := tr.Begin("s1", Greetings, ActionSave)
	require.NoError(t, err)

	_, running, err := tr.Begin("s1", Greetings, ActionReset)
	assert.ErrorIs(t, err, models.ErrOperationInProgress)
	assert.Equal(t, ActionSave, running)

	release()
	release() // повторный вызов безопасен

	release2, _, err := tr.Begin("s1", Greetings, ActionReset)
	require.NoError(t, err)
	release2()
}

func TestTracker_KeysArePerSessionAndPanel(t *testing.T) {
	tr := NewTracker()

	r1, _, err := tr.Begin("s1", Greetings, ActionSave)
	require.NoError(t, err)
	defer r1()

	r2, _, err := tr.Begin("s1", IVRPrompts, ActionSave)
	require.NoError(t, err, "other panel of the same session")
	defer r2()

	r3, _, err := tr.Begin("s2", Greetings, ActionSave)
	require.NoError(t, err, "same panel of another session")
	defer r3()
}
