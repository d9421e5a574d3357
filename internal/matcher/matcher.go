// Package matcher scans bank statement transactions for one whose memo
// contains a normalized payment code. Codes are embedded in free text, so
// containment, not equality, is the criterion. When several historical
// payments reused the same code the most recent one wins.
package matcher

import (
	"sort"
	"strings"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/normalize"
)

// FindMatch returns the most recent transaction whose normalized memo
// contains normalizedCode as a substring, or nil when none qualifies.
// normalizedCode must already be in canonical [A-Z0-9] form; an empty code
// never matches.
func FindMatch(txs []models.BankTransaction, normalizedCode string) *models.BankTransaction {
	if normalizedCode == "" {
		return nil
	}

	var matched []models.BankTransaction
	for _, tx := range txs {
		memo := normalize.Code(tx.Memo())
		if strings.Contains(memo, normalizedCode) {
			matched = append(matched, tx)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	// Ascending by time, pick the last: the freshest reuse of the code.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Time < matched[j].Time
	})
	best := matched[len(matched)-1]
	return &best
}
