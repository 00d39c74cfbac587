package internal

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"

	"github.com/Knetic/govaluate"
	"github.com/PaesslerAG/jsonpath"
)

// Rule maps a boolean expression over a claim transition to topics.
type Rule struct {
	When string   `yaml:"when"`
	Emit EmitList `yaml:"emit"`
}

// EmitList accepts either a single topic or a list of topics in YAML.
type EmitList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *EmitList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*e = EmitList{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*e = list
	return nil
}

// jsonPathToken matches JSONPath references such as $.claim.state or $.labels[0].
var jsonPathToken = regexp.MustCompile(`\$(?:\.[A-Za-z_][A-Za-z0-9_]*|\[[0-9]+\])+`)

type compiledRule struct {
	when      string
	emit      []string
	expr      *govaluate.EvaluableExpression
	jsonPaths map[string]string
}

// RuleEngine evaluates rules against JSON documents.
type RuleEngine struct {
	rules  []compiledRule
	logger *log.Logger
}

// NewRuleEngine compiles the configured rules.
func NewRuleEngine(rules []Rule, logger *log.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = log.Default()
	}
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		expression, paths := rewriteJSONPaths(rule.When)
		expr, err := govaluate.NewEvaluableExpression(expression)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		compiled = append(compiled, compiledRule{
			when:      rule.When,
			emit:      rule.Emit,
			expr:      expr,
			jsonPaths: paths,
		})
	}
	return &RuleEngine{rules: compiled, logger: logger}, nil
}

// Evaluate returns the topics of every rule matching the JSON document raw.
// Rules that fail to evaluate, including ones that reference missing fields,
// do not match.
func (r *RuleEngine) Evaluate(raw []byte) []string {
	if r == nil || len(r.rules) == 0 {
		return nil
	}
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		r.logger.Printf("rule input is not json: %v", err)
		return nil
	}
	params := map[string]interface{}{}
	if object, ok := document.(map[string]interface{}); ok {
		params = Parameters(object)
	}

	var topics []string
	for _, rule := range r.rules {
		ruleParams := params
		if len(rule.jsonPaths) > 0 {
			ruleParams = make(map[string]interface{}, len(params)+len(rule.jsonPaths))
			for key, value := range params {
				ruleParams[key] = value
			}
			missing := false
			for name, path := range rule.jsonPaths {
				value, err := jsonpath.Get(path, document)
				if err != nil {
					missing = true
					break
				}
				ruleParams[name] = value
			}
			if missing {
				continue
			}
		}
		result, err := rule.expr.Evaluate(ruleParams)
		if err != nil {
			continue
		}
		if ok, _ := result.(bool); ok {
			topics = append(topics, rule.emit...)
		}
	}
	return topics
}

func rewriteJSONPaths(expression string) (string, map[string]string) {
	paths := map[string]string{}
	i := 0
	rewritten := jsonPathToken.ReplaceAllStringFunc(expression, func(path string) string {
		name := fmt.Sprintf("jsonpath_ref_%d", i)
		i++
		paths[name] = path
		return name
	})
	return rewritten, paths
}
