package mq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRetryCountFrom(t *testing.T) {
	cases := []struct {
		name     string
		headers  amqp.Table
		expected int
	}{
		{"nil headers", nil, 0},
		{"missing header", amqp.Table{}, 0},
		{"int32", amqp.Table{RetryHeader: int32(2)}, 2},
		{"int64", amqp.Table{RetryHeader: int64(3)}, 3},
		{"int", amqp.Table{RetryHeader: 1}, 1},
		{"int8", amqp.Table{RetryHeader: int8(4)}, 4},
		{"unreadable string", amqp.Table{RetryHeader: "2"}, 0},
		{"unreadable nil value", amqp.Table{RetryHeader: nil}, 0},
	}

	for _, tc := range cases {
		if got := retryCountFrom(tc.headers); got != tc.expected {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.expected)
		}
	}
}

func TestDelivery_RetryCount(t *testing.T) {
	d := &Delivery{
		raw: amqp.Delivery{
			Headers: amqp.Table{RetryHeader: int32(2)},
			Body:    []byte(`{}`),
		},
	}
	if d.RetryCount() != 2 {
		t.Errorf("retry count: got %d, want 2", d.RetryCount())
	}
	if string(d.Body()) != `{}` {
		t.Errorf("body: got %q", d.Body())
	}
}
