package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/converge-shop/internal/model"
)

func TestReconcile(t *testing.T) {
	prior := map[string]model.LedgerBalance{
		"UREDUCED":   {Payouts: 12, Spent: 5},
		"UGROWN":     {Payouts: 3},
		"UOVERSPENT": {Payouts: 2, Spent: 6},
		"UPROTECTED": {Payouts: 8, Protected: 5, Spent: 1},
	}
	newTokens := map[string]int64{
		"UREDUCED":   3,
		"UGROWN":     5,
		"UOVERSPENT": 0,
		"UPROTECTED": 4,
	}
	emails := map[string]string{"UREDUCED": "r@example.com"}

	users := []string{"UREDUCED", "UGROWN", "UOVERSPENT", "UPROTECTED", "UNEW", "UREDUCED"}

	got := Reconcile(users, prior, newTokens, emails)

	assert.Equal(t, []Warning{
		{SlackID: "UREDUCED", Email: "r@example.com", OldBalance: 7, NewBalance: 0, Difference: 7},
	}, got)
}

func TestReconcile_ProtectedCountsTowardNewBalance(t *testing.T) {
	prior := map[string]model.LedgerBalance{
		"U1": {Payouts: 10, Protected: 4, Spent: 2},
	}

	got := Reconcile([]string{"U1"}, prior, map[string]int64{"U1": 3}, nil)

	// было 10-2=8, стало 3+4-2=5
	assert.Equal(t, []Warning{{SlackID: "U1", OldBalance: 8, NewBalance: 5, Difference: 3}}, got)
}
