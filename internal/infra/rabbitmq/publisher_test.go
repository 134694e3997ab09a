package rabbitmq

import (
	"strings"
	"testing"
)

func TestNewPublisherRejectsBadURL(t *testing.T) {
	_, err := NewPublisher("not-a-url", "")
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if !strings.Contains(err.Error(), "RabbitMQ") {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
}
