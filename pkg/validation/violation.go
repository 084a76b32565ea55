package validation

import (
	"errors"
	"fmt"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// Kind classifies a violation
type Kind string

const (
	KindStructural   Kind = "structural"
	KindDuplicate    Kind = "duplicate"
	KindUniqueness   Kind = "uniqueness"
	KindCompleteness Kind = "completeness"
	KindConfig       Kind = "config"
)

// Rule names the check that produced a violation
type Rule string

const (
	RuleSingleParent            Rule = "single-parent"
	RuleStructuralCompatibility Rule = "structural-compatibility"
	RuleNoDuplicatePlacement    Rule = "no-duplicate-placement"
	RuleScopedDTMF              Rule = "scoped-dtmf"
	RuleNonEmpty                Rule = "non-empty"
	RuleFullConnectivity        Rule = "full-connectivity"
	RuleCompleteness            Rule = "completeness"
	RuleExperienceCoverage      Rule = "experience-coverage"
	RuleConfigShape             Rule = "config-shape"
)

// Kind returns the violation class a rule reports under
func (r Rule) Kind() Kind {
	switch r {
	case RuleSingleParent, RuleStructuralCompatibility, RuleFullConnectivity, RuleExperienceCoverage:
		return KindStructural
	case RuleNoDuplicatePlacement:
		return KindDuplicate
	case RuleScopedDTMF:
		return KindUniqueness
	case RuleNonEmpty, RuleCompleteness:
		return KindCompleteness
	default:
		return KindConfig
	}
}

// Violation is a recoverable validation failure. It is returned as an error
// so callers can use errors.As to get the details and errors.Is with the
// kind sentinels below to branch on the class.
type Violation struct {
	Kind    Kind             `json:"kind"`
	Rule    Rule             `json:"rule"`
	Message string           `json:"message"`
	NodeID  flow.NodeID      `json:"node_id,omitempty"`
	Fields  ValidationErrors `json:"fields,omitempty"`
}

func newViolation(rule Rule, node flow.NodeID, format string, args ...interface{}) *Violation {
	return &Violation{
		Kind:    rule.Kind(),
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
		NodeID:  node,
	}
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s violation (%s): %s", v.Kind, v.Rule, v.Message)
}

// Is matches the kind sentinels
func (v *Violation) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && Kind(k) == v.Kind
}

type kindSentinel Kind

func (k kindSentinel) Error() string { return string(k) + " violation" }

// Kind sentinels for errors.Is
var (
	ErrStructural   error = kindSentinel(KindStructural)
	ErrDuplicate    error = kindSentinel(KindDuplicate)
	ErrUniqueness   error = kindSentinel(KindUniqueness)
	ErrCompleteness error = kindSentinel(KindCompleteness)
	ErrConfig       error = kindSentinel(KindConfig)
)

// AsViolation unwraps err into a *Violation
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	ok := errors.As(err, &v)
	return v, ok
}
