package bastion

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/xraph/bastion/rule"
)

// Evaluator evaluates policy rules against a check request.
type Evaluator interface {
	// Evaluate applies every rule to the request and merges the matches
	// with deny-override. roles is the subject's effective role set; a
	// rule's subject pattern matches when it matches the subject ID or
	// any effective role. A nil decision means no rule matched.
	Evaluate(ctx context.Context, rules []*rule.Rule, roles []string, req *CheckRequest) (*Decision, error)
}

// DefaultEvaluator returns the built-in rule evaluator.
func DefaultEvaluator() Evaluator { return &ruleEvaluator{} }

type ruleEvaluator struct{}

func (e *ruleEvaluator) Evaluate(_ context.Context, rules []*rule.Rule, roles []string, req *CheckRequest) (*Decision, error) {
	var denies, allows []MatchInfo

	for _, r := range rules {
		if !e.matchesSubject(r, roles, req) {
			continue
		}
		if !MatchPattern(r.Resource, req.Resource) {
			continue
		}
		if !MatchPattern(r.Action, req.Action) {
			continue
		}

		conditionsMet, err := e.evaluateConditions(r.Conditions, req)
		if err != nil {
			return nil, fmt.Errorf("evaluate conditions for rule %s: %w", r.ID, err)
		}
		if !conditionsMet {
			continue
		}

		info := MatchInfo{
			RuleID:   r.ID.String(),
			Effect:   string(r.Effect),
			Priority: r.Priority,
			Detail:   r.Description,
		}
		if r.Effect == rule.EffectDeny {
			denies = append(denies, info)
		} else {
			allows = append(allows, info)
		}
	}

	// Deny overrides allow regardless of priority or evaluation order.
	// Priorities only pick the reported winner among the deciding side.
	if len(denies) > 0 {
		winner := highestPriority(denies)
		return &Decision{
			Allowed:   false,
			Code:      DecisionDenyExplicit,
			Reason:    fmt.Sprintf("denied by rule %s", winner.RuleID),
			MatchedBy: orderMatches(winner, denies, allows),
		}, nil
	}
	if len(allows) > 0 {
		winner := highestPriority(allows)
		return &Decision{
			Allowed:   true,
			Code:      DecisionAllow,
			MatchedBy: orderMatches(winner, allows, nil),
		}, nil
	}
	return nil, nil
}

func (e *ruleEvaluator) matchesSubject(r *rule.Rule, roles []string, req *CheckRequest) bool {
	if MatchPattern(r.Subject, req.Subject.ID) {
		return true
	}
	for _, role := range roles {
		if MatchPattern(r.Subject, role) {
			return true
		}
	}
	return false
}

func (e *ruleEvaluator) evaluateConditions(conditions []rule.Condition, req *CheckRequest) (bool, error) {
	for _, c := range conditions {
		val := resolveField(c.Field, req)
		ok, err := evaluateCondition(c.Operator, val, c.Value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func highestPriority(matches []MatchInfo) MatchInfo {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Priority > best.Priority {
			best = m
		}
	}
	return best
}

// orderMatches puts the winning match first, then the rest of the
// deciding side, then the overridden side.
func orderMatches(winner MatchInfo, deciding, overridden []MatchInfo) []MatchInfo {
	out := make([]MatchInfo, 0, len(deciding)+len(overridden))
	out = append(out, winner)
	for _, m := range deciding {
		if m.RuleID != winner.RuleID {
			out = append(out, m)
		}
	}
	out = append(out, overridden...)
	return out
}

func resolveField(field string, req *CheckRequest) any {
	parts := strings.SplitN(field, ".", 2)
	if len(parts) < 2 {
		return nil
	}
	switch parts[0] {
	case "subject":
		if parts[1] == "id" {
			return req.Subject.ID
		}
		if req.Subject.Attributes != nil {
			return req.Subject.Attributes[parts[1]]
		}
	case "resource":
		if parts[1] == "id" {
			return req.Resource
		}
	case "action":
		if parts[1] == "name" {
			return req.Action
		}
	case "context":
		if req.Context != nil {
			return req.Context[parts[1]]
		}
	}
	return nil
}

func evaluateCondition(op rule.Operator, actual, expected any) (bool, error) {
	switch op {
	case rule.OpEquals:
		return fmt.Sprint(actual) == fmt.Sprint(expected), nil
	case rule.OpNotEquals:
		return fmt.Sprint(actual) != fmt.Sprint(expected), nil
	case rule.OpIn:
		return inSlice(actual, expected), nil
	case rule.OpNotIn:
		return !inSlice(actual, expected), nil
	case rule.OpContains:
		return strings.Contains(fmt.Sprint(actual), fmt.Sprint(expected)), nil
	case rule.OpStartsWith:
		return strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(expected)), nil
	case rule.OpEndsWith:
		return strings.HasSuffix(fmt.Sprint(actual), fmt.Sprint(expected)), nil
	case rule.OpGreaterThan:
		return compareNumbers(actual, expected) > 0, nil
	case rule.OpLessThan:
		return compareNumbers(actual, expected) < 0, nil
	case rule.OpGTE:
		return compareNumbers(actual, expected) >= 0, nil
	case rule.OpLTE:
		return compareNumbers(actual, expected) <= 0, nil
	case rule.OpExists:
		return actual != nil, nil
	case rule.OpNotExists:
		return actual == nil, nil
	case rule.OpIPInCIDR:
		return ipInCIDR(fmt.Sprint(actual), expected)
	case rule.OpTimeAfter:
		return timeCompare(actual, expected, true)
	case rule.OpTimeBefore:
		return timeCompare(actual, expected, false)
	case rule.OpRegex:
		re, err := regexp.Compile(fmt.Sprint(expected))
		if err != nil {
			return false, fmt.Errorf("%w: invalid regex %q: %w", ErrInvalidCondition, expected, err)
		}
		return re.MatchString(fmt.Sprint(actual)), nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, op)
	}
}

func inSlice(actual, expected any) bool {
	s := fmt.Sprint(actual)
	switch v := expected.(type) {
	case []string:
		for _, item := range v {
			if item == s {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if fmt.Sprint(item) == s {
				return true
			}
		}
	}
	return false
}

func compareNumbers(a, b any) int {
	fa := toFloat64(a)
	fb := toFloat64(b)
	if fa < fb {
		return -1
	}
	if fa > fb {
		return 1
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func ipInCIDR(ipStr string, cidrVal any) (bool, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false, nil
	}

	var cidrs []string
	switch v := cidrVal.(type) {
	case string:
		cidrs = []string{v}
	case []string:
		cidrs = v
	case []any:
		for _, item := range v {
			cidrs = append(cidrs, fmt.Sprint(item))
		}
	default:
		return false, nil
	}

	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true, nil
		}
	}
	return false, nil
}

func timeCompare(actual, expected any, after bool) (bool, error) {
	at, ok := parseTime(actual)
	if !ok {
		return false, nil
	}
	et, ok := parseTime(expected)
	if !ok {
		return false, nil
	}
	if after {
		return at.After(et), nil
	}
	return at.Before(et), nil
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
