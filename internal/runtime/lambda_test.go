package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/mocks"
)

func TestLambdaAdapter_DirectInvocation(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, []model.DownloadRequest{{SourceURL: "https://example.com/a.pdf"}}).
		Return(sampleResult(), nil)
	a := NewLambdaAdapter(NewHandler(runner), mocks.NewMockLogger())

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "aws-req-1"})
	out, err := a.HandleEvent(ctx, json.RawMessage(`{"requests": [{"url": "https://example.com/a.pdf"}]}`))

	require.NoError(t, err)
	resp, ok := out.(Response)
	require.True(t, ok, "got %T", out)
	assert.True(t, resp.Success)
	assert.Equal(t, "aws-req-1", resp.ID)
	runner.AssertExpectations(t)
}

func TestLambdaAdapter_SQSEvent(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, []model.DownloadRequest{{SourceURL: "https://example.com/ok.pdf"}}).
		Return(sampleResult(), nil)
	runner.On("Run", mock.Anything, []model.DownloadRequest{{SourceURL: "https://example.com/retry.pdf"}}).
		Return(model.BatchResult{}, errors.New("destination not writable"))
	a := NewLambdaAdapter(NewHandler(runner), mocks.NewMockLogger())

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `["https://example.com/ok.pdf"]`, EventSource: "aws:sqs"},
		{MessageId: "m2", Body: `["https://example.com/retry.pdf"]`, EventSource: "aws:sqs"},
		{MessageId: "m3", Body: `not json`, EventSource: "aws:sqs"},
	}}
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	out, err := a.HandleEvent(context.Background(), raw)

	require.NoError(t, err)
	resp, ok := out.(events.SQSEventResponse)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m2"}}, resp.BatchItemFailures,
		"only retryable failures are redelivered")
}

func TestLambdaAdapter_SQSEventPastDeadline(t *testing.T) {
	a := NewLambdaAdapter(NewHandler(blockingScheduler(t)), mocks.NewMockLogger())

	raw, err := json.Marshal(events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `["https://example.com/slow.pdf"]`, EventSource: "aws:sqs"},
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out, err := a.HandleEvent(ctx, raw)

	require.NoError(t, err)
	resp, ok := out.(events.SQSEventResponse)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "m1"}}, resp.BatchItemFailures)
}

func TestLambdaAdapter_BareArray(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, mock.Anything).Return(model.BatchResult{}, nil)
	a := NewLambdaAdapter(NewHandler(runner), mocks.NewMockLogger())

	out, err := a.HandleEvent(context.Background(), json.RawMessage(`["https://example.com/a.pdf"]`))

	require.NoError(t, err)
	resp := out.(Response)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ID)
}
