package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentkernel/core"
	"github.com/hupe1980/agentkernel/model"
	"github.com/tidwall/gjson"
)

// ModelClassifier asks a model.Model to classify the request, using the
// fixed few-shot prompt in prompts.go. It never falls back internally —
// Supervisor is responsible for falling back to HeuristicClassifier when
// this returns an error or an empty result.
type ModelClassifier struct {
	Model   model.Model
	Timeout time.Duration // default 10s if zero
}

// Classify implements Classifier.
func (c ModelClassifier) Classify(ctx context.Context, taskDescription string) ([]Intent, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := model.Request{
		Instructions: classifierSystemPrompt,
		Contents: []core.Content{
			{Role: "user", Parts: []core.Part{core.TextPart{Text: taskDescription}}},
		},
	}

	respCh, errCh := c.Model.Generate(ctx, req)

	var text string
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			text = resp.Content.Text()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("plan: model classifier: %w", err)
			}
		}
	}

	if text == "" {
		return nil, fmt.Errorf("plan: model classifier: empty response")
	}

	parsed := gjson.Get(text, "intents")
	if !parsed.IsArray() {
		return nil, fmt.Errorf("plan: model classifier: response is not a JSON object with an \"intents\" array: %q", text)
	}

	var intents []Intent
	parsed.ForEach(func(_, v gjson.Result) bool {
		intents = append(intents, Intent(v.String()))
		return true
	})
	return intents, nil
}
