package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:11434/api/chat")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestAssessActivity(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llava",
			"message": map[string]any{"role": "assistant", "content": "```json\n{\"activity_level\":\"High\",\"confidence\":0.7,\"reasoning\":\"fast swimming\"}\n```"},
			"done":    true,
		})
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	opinion, err := c.AssessActivity(context.Background(), "llava", "how active are the fish?", img)
	require.NoError(t, err)
	assert.Equal(t, "High", opinion.ActivityLevel)
	assert.Equal(t, 0.7, opinion.Confidence)
	assert.Equal(t, "llava", got["model"])
}

func TestSimpleQueryBadImage(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.SimpleQuery(context.Background(), "llava", "hello", "%%%not base64")
	assert.Error(t, err)
}
