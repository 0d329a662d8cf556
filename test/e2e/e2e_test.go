//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/service"
)

// TestE2E_BudgetLifecycle completes an item, reads the summary and clears the alert.
func TestE2E_BudgetLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	items := docstore.Path(service.CollectionShoppingLists, "l1", "items")
	env.Seed(service.CollectionShoppingLists, "l1", map[string]any{
		"name":        "Weekly",
		"createdBy":   "owner",
		"memberIds":   []any{"owner"},
		"status":      domain.ListStatusActive,
		"budgetLimit": 1000.0,
	})
	env.Seed(items, "i1", map[string]any{"name": "Rice", "quantity": 1.0, "estimatedPrice": 800.0, "isCompleted": true})
	owner := env.As("owner")

	t.Run("completion raises a warning alert", func(t *testing.T) {
		ack, result := env.Trigger("/items/written", map[string]any{
			"listId": "l1",
			"itemId": "i1",
			"before": map[string]any{"name": "Rice", "quantity": 1, "estimatedPrice": 800, "isCompleted": false},
			"after":  map[string]any{"name": "Rice", "quantity": "1", "estimatedPrice": "800", "isCompleted": true},
		})
		require.True(t, ack.Processed, ack.Error)

		var alert domain.BudgetAlert
		require.NoError(t, json.Unmarshal(result, &alert))
		require.Len(t, alert.Alerts, 1)
		assert.Equal(t, domain.AlertWarning, alert.Alerts[0].Type)
		assert.Equal(t, 800.0, alert.TotalSpent)

		hydration := env.Load(docstore.Path(service.CollectionShoppingLists, "l1", "meta"), service.DocHydration)
		require.NotNil(t, hydration)
		assert.Equal(t, 800.0, hydration["estimatedTotal"])
	})

	t.Run("summary reflects the spend", func(t *testing.T) {
		resp, err := env.Get("/budget/summary?period=month", owner)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var summary domain.BudgetSummary
		require.NoError(t, json.Unmarshal(resp.Data, &summary))
		assert.Equal(t, 1000.0, summary.Summary.TotalBudget)
		assert.Equal(t, 800.0, summary.Summary.TotalSpent)
		require.Len(t, summary.Lists, 1)
		assert.Equal(t, "l1", summary.Lists[0].ListID)
	})

	t.Run("mark all alerts read", func(t *testing.T) {
		resp, err := env.Post("/budget/alerts/read", map[string]any{}, owner)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out struct {
			Success bool `json:"success"`
			Updated int  `json:"updated"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.True(t, out.Success)
		assert.Equal(t, 1, out.Updated)
	})

	t.Run("caller routes require a token", func(t *testing.T) {
		resp, err := env.Get("/budget/summary", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// TestE2E_ContactMatching matches an uploaded hash against a registered phone.
func TestE2E_ContactMatching(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.Seed(service.CollectionUsers, "u2", map[string]any{
		"firstName":   "Ben",
		"lastName":    "Silva",
		"phoneNumber": "+14155550123",
	})
	env.Seed(service.CollectionContactSyncs, "u1", map[string]any{
		"hashedContacts": []any{service.HashPhoneNumber("4155550123"), service.HashPhoneNumber("+10000000000")},
	})

	ack, result := env.Trigger("/contact-syncs/created", map[string]any{"userId": "u1"})
	require.True(t, ack.Processed, ack.Error)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(result, &counts))
	assert.Equal(t, 1, counts["matches"])
	assert.Equal(t, 2, counts["processed"])

	contacts := env.Load(service.CollectionUserContacts, "u1")
	require.NotNil(t, contacts)
	assert.Equal(t, domain.SyncStatusCompleted, contacts["syncStatus"])
	assert.Equal(t, domain.SyncStatusCompleted, env.Load(service.CollectionContactSyncs, "u1")["status"])
}

// TestE2E_PresenceSyncAndCleanup mirrors a status and sweeps it once the realtime entry is gone.
func TestE2E_PresenceSyncAndCleanup(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	ack, _ := env.Trigger("/presence/written", map[string]any{
		"userId": "u3",
		"status": map[string]any{"state": domain.PresenceOnline},
	})
	require.True(t, ack.Processed, ack.Error)
	assert.Equal(t, domain.PresenceOnline, env.Load(service.CollectionStatus, "u3")["state"])

	ack, result := env.Trigger("/presence/cleanup", nil)
	require.True(t, ack.Processed, ack.Error)

	var cleanup service.CleanupResult
	require.NoError(t, json.Unmarshal(result, &cleanup))
	assert.Equal(t, 1, cleanup.Processed)
	assert.Equal(t, 1, cleanup.Stale)
	assert.Equal(t, domain.PresenceOffline, env.Load(service.CollectionStatus, "u3")["state"])
}
