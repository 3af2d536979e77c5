package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m1")}, nil
}

func TestSQSClientSendsEncodedMessage(t *testing.T) {
	sender := &fakeSender{}
	client := &SQSClient{client: sender, queueURL: "https://sqs.example/queue"}

	msg := NewMessage("meeting-9", "req-9", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sender.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.inputs))
	}
	in := sender.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.example/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(in.QueueUrl))
	}
	got, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.MeetingID != "meeting-9" || got.RequestID != "req-9" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestSQSClientWrapsSendError(t *testing.T) {
	boom := errors.New("boom")
	client := &SQSClient{client: &fakeSender{err: boom}, queueURL: "q"}

	err := client.Send(context.Background(), NewMessage("m", "r", time.Now()))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewSQSClientRequiresQueueURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty queue url")
	}
}
