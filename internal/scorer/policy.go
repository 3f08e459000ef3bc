// ABOUTME: Hard-constraint policy gates evaluated alongside the numeric score.
// ABOUTME: A gate never changes the score but forces an explicit override before approval.

package scorer

import (
	"fmt"

	"github.com/jfeddern/VendorRisk/internal/types"
)

const (
	repeatedBreachThreshold    = 2
	repeatedViolationThreshold = 2
)

// evaluatePolicyGates expects a profile that has already been validated
func evaluatePolicyGates(profile types.VendorProfile) []types.PolicyViolation {
	violations := []types.PolicyViolation{}

	if !profile.Privacy.GDPRCompliant && profile.Privacy.EUPersonalDataInScope() {
		violations = append(violations, types.PolicyViolation{
			Gate:     types.GateGDPRAbsent,
			Category: types.CategoryPrivacy,
			Message:  "Vendor is not GDPR compliant while EU personal data is in scope",
		})
	}

	if breaches := profile.Security.BreachesLast3Years; breaches >= repeatedBreachThreshold {
		violations = append(violations, types.PolicyViolation{
			Gate:     types.GateRepeatedBreaches,
			Category: types.CategorySecurity,
			Message:  fmt.Sprintf("%d security breaches in the last 3 years", breaches),
		})
	}

	if count := profile.Compliance.ViolationsLast5Years; count >= repeatedViolationThreshold {
		violations = append(violations, types.PolicyViolation{
			Gate:     types.GateRepeatedViolations,
			Category: types.CategoryCompliance,
			Message:  fmt.Sprintf("%d regulatory violations in the last 5 years", count),
		})
	}

	return violations
}
