package kafka

import "testing"

func TestTopicForEvent(t *testing.T) {
	cases := map[string]string{
		"sale.imported":         TopicSaleEvents,
		"sync.completed":        TopicSaleEvents,
		"fulfillment.shipped":   TopicFulfillmentEvents,
		"fulfillment.cancelled": TopicFulfillmentEvents,
		"":                      TopicSaleEvents,
	}

	for eventType, want := range cases {
		if got := topicForEvent(eventType); got != want {
			t.Errorf("topicForEvent(%q) = %q, want %q", eventType, got, want)
		}
	}
}
