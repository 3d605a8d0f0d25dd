package commitclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/pkg/core/model"
)

func testParams() model.RecordPosterLogParams {
	return model.RecordPosterLogParams{
		TaskClaimID:    "claim-1",
		CampaignID:     "camp-1",
		WorkerID:       "worker-1",
		Type:           "hang",
		Latitude:       55.676,
		Longitude:      12.568,
		PhotoURL:       "camp-1/worker-1/1731240000000.jpg",
		RuleViolations: []string{},
	}
}

func TestRecordPosterLog(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(model.CommitResult{
			LogID:       "log-1",
			NewCount:    8,
			NewEarnings: 100,
			IsComplete:  false,
			Status:      "in_progress",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key", zap.NewNop())
	result, err := c.RecordPosterLog(context.Background(), testParams())
	require.NoError(t, err)

	assert.Equal(t, "/rpc/record_poster_log", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "log-1", result.LogID)
	assert.Equal(t, 8, result.NewCount)

	// Wire keys follow the server contract
	assert.Equal(t, "claim-1", gotBody["p_task_claim_id"])
	assert.Equal(t, "hang", gotBody["p_type"])
	assert.Contains(t, gotBody, "p_rule_violations")
	// Absent optionals are sent as explicit nulls
	assert.Nil(t, gotBody["p_address"])
}

func TestRecordPosterLog_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"claim is not active"}`, http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, "", zap.NewNop())
	_, err := c.RecordPosterLog(context.Background(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestRecordPosterLog_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "", zap.NewNop())
	_, err := c.RecordPosterLog(context.Background(), testParams())
	require.Error(t, err)
}
