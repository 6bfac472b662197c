package coverage

import (
	"fmt"
	"strings"
)

// Policy names the rule deciding when a comparison fails the check.
type Policy string

const (
	// PolicyNever never fails.
	PolicyNever Policy = "never"
	// PolicyRegression fails when any metric decreased.
	PolicyRegression Policy = "regression"
	// PolicyStagnation fails when both metrics are unchanged.
	PolicyStagnation Policy = "stagnation"
	// PolicyStrict fails on regression or stagnation.
	PolicyStrict Policy = "strict"
	// PolicyAnyUnchanged fails when at least one metric is unchanged.
	PolicyAnyUnchanged Policy = "any-unchanged"
)

// DefaultPolicy is used when none is configured.
const DefaultPolicy = PolicyRegression

// Policies lists every policy in documentation order.
func Policies() []Policy {
	return []Policy{PolicyNever, PolicyRegression, PolicyStagnation, PolicyStrict, PolicyAnyUnchanged}
}

// ParsePolicy validates a policy name. Empty selects DefaultPolicy.
func ParsePolicy(name string) (Policy, error) {
	if name == "" {
		return DefaultPolicy, nil
	}
	for _, p := range Policies() {
		if string(p) == name {
			return p, nil
		}
	}
	names := make([]string, 0, len(Policies()))
	for _, p := range Policies() {
		names = append(names, string(p))
	}
	return "", fmt.Errorf("unknown coverage policy %q (want one of: %s)", name, strings.Join(names, ", "))
}

// Fails reports whether c violates the policy.
func (p Policy) Fails(c Comparison) bool {
	switch p {
	case PolicyNever:
		return false
	case PolicyStagnation:
		return c.Stagnated()
	case PolicyStrict:
		return c.Regressed() || c.Stagnated()
	case PolicyAnyUnchanged:
		return c.AnyUnchanged()
	default:
		return c.Regressed()
	}
}

// Reason describes why c failed the policy.
func (p Policy) Reason(c Comparison) string {
	switch {
	case c.Regressed() && p != PolicyStagnation && p != PolicyAnyUnchanged:
		return "coverage decreased"
	case c.Stagnated():
		return "coverage stays unchanged for both lines and functions"
	default:
		return "coverage stays unchanged"
	}
}
