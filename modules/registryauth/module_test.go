package registryauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pipewright/internal/secrets"
	"github.com/specialistvlad/pipewright/internal/stepctx"
)

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves and stores the credential", func(t *testing.T) {
		t.Parallel()
		sc := &stepctx.Context{
			Job:     "docker_container",
			Secrets: secrets.Static(map[string]string{"DOCKER_TOKEN": "hunter2"}),
		}

		out, err := Run(ctx, sc, &Input{Username: "ci-bot", TokenRef: "DOCKER_TOKEN"})
		require.NoError(t, err)

		cred, ok := sc.Credential()
		require.True(t, ok)
		assert.Equal(t, "ci-bot", cred.Username)
		assert.Equal(t, "hunter2", cred.Token)

		assert.NotContains(t, out, "hunter2", "the token must never appear in step output")
	})

	t.Run("unknown reference fails the step", func(t *testing.T) {
		t.Parallel()
		sc := &stepctx.Context{
			Job:     "docker_container",
			Secrets: secrets.Static(nil),
		}

		_, err := Run(ctx, sc, &Input{Username: "ci-bot", TokenRef: "DNE"})
		assert.ErrorIs(t, err, secrets.ErrNotFound)

		_, ok := sc.Credential()
		assert.False(t, ok)
	})

	t.Run("no resolver configured fails", func(t *testing.T) {
		t.Parallel()
		sc := &stepctx.Context{Job: "docker_container"}
		_, err := Run(ctx, sc, &Input{Username: "ci-bot", TokenRef: "DOCKER_TOKEN"})
		assert.ErrorContains(t, err, "no secret resolver")
	})
}
