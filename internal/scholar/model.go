// Package scholar holds the local view model of the on-chain application
// registry: the record type, the refreshing repository, and the derived
// statistics.
package scholar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ScholarShield/scholarship-client/internal/registry"
)

// Application is one scholarship application as seen by the client. Records
// are never mutated locally; the repository replaces them wholesale on each
// load so the local view cannot diverge from on-chain truth.
type Application struct {
	ID              string
	Name            string
	Description     string
	AcademicScore   int64
	Extracurricular int64
	// EncryptedIncomeHandle references the on-chain ciphertext. The registry
	// stores one ciphertext per record, keyed by the record id.
	EncryptedIncomeHandle string
	Creator               string
	Timestamp             time.Time
	// IsVerified becomes true exactly once, after on-chain proof
	// verification, and never reverts.
	IsVerified bool
	// DecryptedValue is meaningful only when IsVerified is true.
	DecryptedValue int64
}

// FromView converts a wire-level record view into the local model.
func FromView(id string, view registry.RecordView) Application {
	return Application{
		ID:                    id,
		Name:                  view.Name,
		Description:           view.Description,
		AcademicScore:         view.PublicValue1,
		Extracurricular:       view.PublicValue2,
		EncryptedIncomeHandle: id,
		Creator:               view.Creator,
		Timestamp:             time.Unix(view.Timestamp, 0),
		IsVerified:            view.IsVerified,
		DecryptedValue:        view.DecryptedValue,
	}
}

// NewRecordID generates a fresh record id: a time-derived token with a random
// suffix so rapid submissions from one account cannot collide.
func NewRecordID(now time.Time) string {
	return fmt.Sprintf("scholar-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// CoerceInt parses a user-supplied numeric field, defaulting to zero for
// anything that is not a plain non-negative integer. Applied to the income
// figure before encryption and to the public scores before submission.
func CoerceInt(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
