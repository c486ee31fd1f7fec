package plugins

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
)

func natsPublishPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			return "publish to " + eval.PropText(it.Props, "subject", "?")
		},
		RunProps: map[string]any{
			"subject":        eval.Required,
			"message":        "",
			"connectTimeout": 500,
			"url":            nats.DefaultURL,
		},
		Run: runNatsPublish,
	}
}

// runNatsPublish publishes message on subject. A broker that cannot be
// reached is a FAILURE of the item.
func runNatsPublish(ctx context.Context, call plugin.Call) (api.Partial, error) {
	subject := call.Props.String("subject")
	timeout := call.Props.Millis("connectTimeout")

	nc, err := nats.Connect(call.Props.String("url"),
		nats.Timeout(timeout),
		nats.Name("scenarioctl"),
		nats.NoReconnect(),
	)
	if err != nil {
		return api.Partial{
			Outcome:  api.OutcomeFailure,
			Failures: []string{fmt.Sprintf("Connection to NATS server failed: %v", err)},
		}, nil
	}
	defer nc.Close()

	if err := nc.Publish(subject, []byte(call.Props.String("message"))); err != nil {
		return api.Partial{}, fmt.Errorf("publishing to %s: %w", subject, err)
	}
	flushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := nc.FlushWithContext(flushCtx); err != nil {
		return api.Partial{
			Outcome:  api.OutcomeFailure,
			Failures: []string{fmt.Sprintf("Publishing to %s was not confirmed: %v", subject, err)},
		}, nil
	}
	return api.Partial{
		Outcome: api.OutcomeSuccess,
		Message: "content published to subject: " + subject,
	}, nil
}
