package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/queue"
	"meetnotes-backend/internal/session"
	"meetnotes-backend/internal/workerproc"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func reprocessor(err error) workerproc.Reprocessor {
	return workerproc.ReprocessFunc(func(context.Context, string) error { return err })
}

func message(t *testing.T, id, body string) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func encoded(t *testing.T, meetingID string) string {
	t.Helper()
	payload, err := queue.EncodeMessage(queue.Message{MeetingID: meetingID, RequestID: "req-" + meetingID, Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(payload)
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantDelete bool
	}{
		{name: "success", body: encoded(t, "1"), wantDelete: true},
		{name: "transient failure", body: encoded(t, "2"), procErr: errors.New("boom"), wantDelete: false},
		{name: "invalid json", body: "{bad-json", wantDelete: true},
		{name: "empty body", body: "", wantDelete: true},
		{name: "missing meeting id", body: `{"requestId":"r"}`, wantDelete: true},
		{name: "meeting gone", body: encoded(t, "3"), procErr: fmt.Errorf("load: %w", meetings.ErrNotFound), wantDelete: true},
		{name: "no recording", body: encoded(t, "4"), procErr: session.ErrNoRecording, wantDelete: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			handleMessage(context.Background(), client, "queue", reprocessor(tt.procErr), message(t, tt.name, tt.body))
			if got := len(client.deleted) == 1; got != tt.wantDelete {
				t.Fatalf("deleted=%v want %v", client.deleted, tt.wantDelete)
			}
		})
	}
}

func TestReceiveCount(t *testing.T) {
	msg := sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	if got := receiveCount(msg); got != 3 {
		t.Fatalf("receiveCount=%d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("receiveCount on empty=%d", got)
	}
}
