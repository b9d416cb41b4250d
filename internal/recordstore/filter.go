package recordstore

import "encoding/json"

// Operator is a field comparison operator understood by the record store.
type Operator string

const (
	OpEq       Operator = "is"
	OpContains Operator = "contains"
)

// Match joins the rules of a filter group.
type Match string

const (
	MatchAnd Match = "and"
	MatchOr  Match = "or"
)

// Rule compares a single field against a value.
type Rule struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// Filter is a boolean predicate tree: rules and nested groups joined by a
// match operator. It JSON-encodes into the store's `filters` query parameter.
type Filter struct {
	Match Match         `json:"match"`
	Rules []interface{} `json:"rules"`
}

// Eq builds an equality rule.
func Eq(field string, value interface{}) Rule {
	return Rule{Field: field, Operator: OpEq, Value: value}
}

// Contains builds a substring rule.
func Contains(field string, value string) Rule {
	return Rule{Field: field, Operator: OpContains, Value: value}
}

// And groups predicates with AND semantics. Accepts Rule and Filter values.
func And(preds ...interface{}) *Filter {
	return &Filter{Match: MatchAnd, Rules: preds}
}

// Or groups predicates with OR semantics. Accepts Rule and Filter values.
func Or(preds ...interface{}) *Filter {
	return &Filter{Match: MatchOr, Rules: preds}
}

// Encode serialises the filter tree for the `filters` query parameter.
func (f *Filter) Encode() (string, error) {
	if f == nil {
		return "", nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
