package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"reportfetch/internal/observability/types"
)

// LambdaAdapter serves the handler on AWS Lambda. Direct invocations carry
// a JSON manifest; SQS events carry one manifest per record body.
type LambdaAdapter struct {
	handler *Handler
	logger  types.Logger
}

// NewLambdaAdapter wraps h.
func NewLambdaAdapter(h *Handler, logger types.Logger) *LambdaAdapter {
	return &LambdaAdapter{handler: h, logger: logger}
}

// Start blocks in the Lambda runtime loop.
func (a *LambdaAdapter) Start() {
	lambda.Start(a.HandleEvent)
}

// HandleEvent routes an invocation. SQS events return an
// events.SQSEventResponse listing retryable records; anything else is
// treated as a manifest and returns the batch Response.
func (a *LambdaAdapter) HandleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(event, &sqsEvent); err == nil && len(sqsEvent.Records) > 0 && sqsEvent.Records[0].MessageId != "" {
		return a.handleSQSEvent(ctx, sqsEvent)
	}

	req := NewRequest("lambda", event)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		req.ID = lc.AwsRequestID
		req.Metadata["function_arn"] = lc.InvokedFunctionArn
	}
	return a.handler.Handle(ctx, req)
}

func (a *LambdaAdapter) handleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{},
	}

	for _, record := range event.Records {
		req := NewRequest("sqs", json.RawMessage(record.Body))
		req.ID = record.MessageId
		req.Metadata["sqs_event_source"] = record.EventSource

		resp, err := a.handler.Handle(ctx, req)
		if err == nil && resp.Error != nil && resp.Error.Retryable {
			err = fmt.Errorf("retryable error: %s", resp.Error.Message)
		}
		if err != nil {
			a.logger.Warn(ctx, "SQS record failed", types.Fields{
				"message_id": record.MessageId,
				"error":      err.Error(),
			})
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return response, nil
}
