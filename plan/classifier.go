package plan

import (
	"context"
	"regexp"
)

// Intent is a member of the closed classification set the supervisor maps
// requests into.
type Intent string

const (
	IntentAnalyze  Intent = "analyze"
	IntentSearch   Intent = "search"
	IntentGenerate Intent = "generate"
	IntentValidate Intent = "validate"
	IntentCompare  Intent = "compare"
	IntentPredict  Intent = "predict"
)

// Classifier turns a task description into zero or more intents.
type Classifier interface {
	Classify(ctx context.Context, taskDescription string) ([]Intent, error)
}

// keywordRule pairs an intent with the regexes that trigger it. Order is
// insertion order, which HeuristicClassifier preserves in its output so the
// supervisor's canonical-order dedup stays deterministic.
type keywordRule struct {
	intent Intent
	re     *regexp.Regexp
}

var heuristicRules = []keywordRule{
	{IntentSearch, regexp.MustCompile(`(?i)\b(find|search|look up|competitors?|research)\b`)},
	{IntentAnalyze, regexp.MustCompile(`(?i)\b(analy[sz]e|analysis|sales|revenue|metrics?)\b`)},
	{IntentCompare, regexp.MustCompile(`(?i)\b(compare|versus|vs\.?|benchmark)\b`)},
	{IntentPredict, regexp.MustCompile(`(?i)\b(predict|forecast|projection|trend)\b`)},
	{IntentGenerate, regexp.MustCompile(`(?i)\b(write|draft|generate|report|document)\b`)},
	{IntentValidate, regexp.MustCompile(`(?i)\b(compliance|validate|check|audit|policy)\b`)},
}

// HeuristicClassifier is a deterministic, dependency-free keyword triage; it
// is always available and is the fallback of last resort when a
// ModelClassifier errors, times out, or returns nothing parseable.
type HeuristicClassifier struct{}

// Classify implements Classifier.
func (HeuristicClassifier) Classify(_ context.Context, taskDescription string) ([]Intent, error) {
	var intents []Intent
	seen := map[Intent]bool{}
	for _, rule := range heuristicRules {
		if rule.re.MatchString(taskDescription) && !seen[rule.intent] {
			intents = append(intents, rule.intent)
			seen[rule.intent] = true
		}
	}
	return intents, nil
}
