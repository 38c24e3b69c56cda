package embed

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
)

const embedURL = "https://generativelanguage.googleapis.com/v1beta/models/text-embedding-004:embedContent"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	client := New("test-key", "text-embedding-004")
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func vectorResponse(values ...float64) map[string]any {
	return map[string]any{"embedding": map[string]any{"values": values}}
}

func TestEmbedReturnsVector(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", embedURL,
		httpmock.NewJsonResponderOrPanic(200, vectorResponse(0.1, 0.2, 0.3)))

	vector, err := client.Embed(context.Background(), "RM10 off sitewide")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Fatalf("vector = %v", vector)
	}
}

func TestEmbedMemoizesNormalizedText(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", embedURL,
		httpmock.NewJsonResponderOrPanic(200, vectorResponse(1, 2)))

	if _, err := client.Embed(context.Background(), "Free  shipping"); err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	// same text modulo whitespace must hit the cache
	if _, err := client.Embed(context.Background(), " Free shipping \n"); err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if got := httpmock.GetTotalCallCount(); got != 1 {
		t.Fatalf("issued %d requests, want 1", got)
	}
}

func TestEmbedFailureIsAnError(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", embedURL,
		httpmock.NewStringResponder(503, "overloaded"))

	if _, err := client.Embed(context.Background(), "anything"); err == nil {
		t.Fatalf("expected an error for a 503")
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	client := newMockedClient(t)

	if _, err := client.Embed(context.Background(), "  \n "); err == nil {
		t.Fatalf("expected an error for empty text")
	}
	if httpmock.GetTotalCallCount() != 0 {
		t.Fatalf("empty text still issued a request")
	}
}

func TestEmbedEmptyVectorIsAnError(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", embedURL,
		httpmock.NewJsonResponderOrPanic(200, vectorResponse()))

	if _, err := client.Embed(context.Background(), "anything"); err == nil {
		t.Fatalf("expected an error for an empty vector")
	}
}
