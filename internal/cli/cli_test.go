package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/converge-shop/internal/airtable"
	"github.com/mmeshcher/converge-shop/internal/loops"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"payout", "payment-report", "backfill-users", "loops-sync", "fillout-sync"} {
		assert.Contains(t, names, want)
	}
}

func TestPayout_HelpWarnsAboutFetchFailures(t *testing.T) {
	out, err := execute(t, "payout", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "counts as zero")
	assert.Contains(t, out, "unprotected payouts are deleted")
}

func TestPayout_MissingConfigFailsFast(t *testing.T) {
	t.Setenv("DATABASE_URI", "")
	t.Setenv("AIRTABLE_API_KEY", "")

	_, err := execute(t, "payout", "--dry-run", "--lock", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URI")
}

func TestEnvFile_Missing(t *testing.T) {
	_, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "absent.env"), "loops-sync")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestFilloutSync_RequiresCSV(t *testing.T) {
	t.Setenv("AIRTABLE_API_KEY", "key")

	_, err := execute(t, "fillout-sync")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestLoopsSync_EndToEnd(t *testing.T) {
	var patched atomic.Int32

	at := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []airtable.Record{
					{ID: "rec1", Fields: airtable.Fields{airtable.FieldEmail: "a@example.com"}},
					{ID: "rec2", Fields: airtable.Fields{airtable.FieldEmail: "b@example.com"}},
					{ID: "rec3", Fields: airtable.Fields{}},
				},
			})
		case http.MethodPatch:
			var body struct {
				Records []airtable.Record `json:"records"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				patched.Add(int32(len(body.Records)))
			}
			_, _ = w.Write([]byte(`{"records":[]}`))
		}
	}))
	defer at.Close()

	lp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var contacts []loops.Contact
		if r.URL.Query().Get("email") == "a@example.com" {
			contacts = []loops.Contact{{Email: "a@example.com", AddressLine1: "1 Main St", AddressCity: "Berlin", AddressCountry: "DE"}}
		}
		_ = json.NewEncoder(w).Encode(contacts)
	}))
	defer lp.Close()

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOOPS_API_KEY=loops-key\n"), 0o600))

	t.Setenv("AIRTABLE_API_KEY", "key")
	t.Setenv("AIRTABLE_API_URL", at.URL)
	t.Setenv("LOOPS_API_URL", lp.URL)
	t.Cleanup(func() { os.Unsetenv("LOOPS_API_KEY") })

	out, err := execute(t, "--env-file", envFile, "loops-sync", "--concurrency", "2")
	require.NoError(t, err)

	assert.Equal(t, int32(1), patched.Load())
	assert.Contains(t, out, "LOOPS SYNC")
	assert.Contains(t, out, "b@example.com")
}
