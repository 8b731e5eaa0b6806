package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{name: "plain", content: `["Slack", "Discord"]`, want: []string{"Slack", "Discord"}},
		{name: "think stripped", content: "<think>\nhmm, slack?\n</think>\n[\"Slack\"]", want: []string{"Slack"}},
		{name: "non strings skipped", content: `["Zulip", 3, null, ""]`, want: []string{"Zulip"}},
		{name: "empty array", content: `[]`, want: []string{}},
		{name: "blank", content: "  ", want: nil},
		{name: "prose", content: "Slack and Discord", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"Slack", "Discord"}, Distinct([]string{"Slack", "slack", "Discord", " SLACK ", ""}))
}

func TestDetect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Messages []message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Description: bridges slack and discord", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<think>ok</think>[\"Slack\",\"Discord\"]"}}]}`))
	}))
	defer ts.Close()

	got, err := NewClassifier(ts.URL).Detect(context.Background(), "Description: bridges slack and discord")
	require.NoError(t, err)
	assert.Equal(t, []string{"Slack", "Discord"}, got)
}

func TestDetect_EmptyTextSkipsRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	}))
	defer ts.Close()

	got, err := NewClassifier(ts.URL).Detect(context.Background(), " \n ")
	require.NoError(t, err)
	assert.Nil(t, got)
}
