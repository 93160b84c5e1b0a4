package scholar

import "strings"

// EligibilityThreshold is the income ceiling, in dollars, below which a
// verified application qualifies. Shared by the stats and the eligibility
// report.
const EligibilityThreshold = 50000

// Stats are aggregate figures derived from a repository snapshot.
type Stats struct {
	Total       int
	Approved    int
	Pending     int
	AvgIncome   float64
	SuccessRate float64
}

// ComputeStats derives aggregate statistics from the given applications.
//
// AvgIncome divides by the total application count while counting unverified
// incomes as zero, which understates the true average. That matches the
// product's published figures and is intentional.
func ComputeStats(apps []Application) Stats {
	stats := Stats{Total: len(apps)}
	if stats.Total == 0 {
		return stats
	}

	var sum int64
	for _, app := range apps {
		if app.IsVerified {
			sum += app.DecryptedValue
			if app.DecryptedValue < EligibilityThreshold {
				stats.Approved++
			}
		} else {
			stats.Pending++
		}
	}

	stats.AvgIncome = float64(sum) / float64(stats.Total)
	stats.SuccessRate = float64(stats.Approved) / float64(stats.Total) * 100
	return stats
}

// Filter returns the applications whose name or description contains term,
// case-insensitively. An empty term returns everything.
func Filter(apps []Application, term string) []Application {
	if term == "" {
		return apps
	}
	needle := strings.ToLower(term)
	var out []Application
	for _, app := range apps {
		if strings.Contains(strings.ToLower(app.Name), needle) ||
			strings.Contains(strings.ToLower(app.Description), needle) {
			out = append(out, app)
		}
	}
	return out
}

// EligibilityReport feeds the income eligibility chart for one application.
type EligibilityReport struct {
	// Income is the figure under consideration: the on-chain verified value
	// when present, otherwise a transient locally decrypted value.
	Income int64
	// Known is false while neither source has disclosed the income.
	Known    bool
	Eligible bool
	// Percent is Income relative to the threshold, capped at 100.
	Percent float64
}

// Eligibility builds the eligibility report for an application, preferring
// the on-chain verified value over the transient local one.
func Eligibility(app Application, local *int64) EligibilityReport {
	var income int64
	switch {
	case app.IsVerified:
		income = app.DecryptedValue
	case local != nil:
		income = *local
	default:
		return EligibilityReport{}
	}

	percent := float64(income) / float64(EligibilityThreshold) * 100
	if percent > 100 {
		percent = 100
	}
	return EligibilityReport{
		Income:   income,
		Known:    true,
		Eligible: income < EligibilityThreshold,
		Percent:  percent,
	}
}
