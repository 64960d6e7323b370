package ocipush

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReference(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		reference string
		wantRepo  string
		wantTag   string
		wantErr   bool
	}{
		{
			name:      "plain reference",
			reference: "registry.example.com/app:latest",
			wantRepo:  "registry.example.com/app",
			wantTag:   "latest",
		},
		{
			name:      "registry with port",
			reference: "localhost:5000/team/app:v1.2.3",
			wantRepo:  "localhost:5000/team/app",
			wantTag:   "v1.2.3",
		},
		{
			name:      "missing tag",
			reference: "registry.example.com/app",
			wantErr:   true,
		},
		{
			name:      "port but no tag",
			reference: "localhost:5000/app",
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo, tag, err := splitReference(tc.reference)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantRepo, repo)
			assert.Equal(t, tc.wantTag, tag)
		})
	}
}

func TestPushError(t *testing.T) {
	t.Parallel()

	cause := errors.New("401 unauthorized")
	err := &PushError{Reference: "registry.example.com/app:latest", Err: cause}

	assert.Contains(t, err.Error(), "registry.example.com/app:latest")
	assert.ErrorIs(t, err, cause)
}

func TestAuthClient(t *testing.T) {
	t.Parallel()

	t.Run("anonymous without username", func(t *testing.T) {
		t.Parallel()
		client := New().authClient("registry.example.com", "", "")
		assert.Nil(t, client.Credential)
	})

	t.Run("static credential with username", func(t *testing.T) {
		t.Parallel()
		client := New().authClient("registry.example.com", "ci-bot", "hunter2")
		assert.NotNil(t, client.Credential)
	})
}
