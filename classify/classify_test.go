package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/jarcoal/httpmock"
)

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	client := New("test-key", "gemini-1.5-flash")
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

const generateURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

func TestCategorizeParsesPlainJSON(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", generateURL,
		httpmock.NewJsonResponderOrPanic(200, candidateResponse(`{"Acme": "Tech", "Bistro": "Food & Drink"}`)))

	got, err := client.Categorize(context.Background(), []string{"Acme", "Bistro"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if got["Acme"] != models.CategoryTech || got["Bistro"] != models.CategoryFoodDrink {
		t.Fatalf("Categorize = %v", got)
	}
}

func TestCategorizeStripsMarkdownFences(t *testing.T) {
	client := newMockedClient(t)
	fenced := "```json\n{\"Acme\": \"Fashion\"}\n```"
	httpmock.RegisterResponder("POST", generateURL,
		httpmock.NewJsonResponderOrPanic(200, candidateResponse(fenced)))

	got, err := client.Categorize(context.Background(), []string{"Acme"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if got["Acme"] != models.CategoryFashion {
		t.Fatalf("Categorize = %v", got)
	}
}

func TestCategorizeDropsUnknownCategories(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", generateURL,
		httpmock.NewJsonResponderOrPanic(200, candidateResponse(`{"Acme": "Gadgets", "Bistro": "Travel"}`)))

	got, err := client.Categorize(context.Background(), []string{"Acme", "Bistro"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if _, ok := got["Acme"]; ok {
		t.Fatalf("unknown category kept: %v", got)
	}
	if got["Bistro"] != models.CategoryTravel {
		t.Fatalf("Categorize = %v", got)
	}
}

func TestCategorizeMalformedResponseIsEmpty(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", generateURL,
		httpmock.NewJsonResponderOrPanic(200, candidateResponse("the shops are nice")))

	got, err := client.Categorize(context.Background(), []string{"Acme"})
	if err == nil {
		t.Fatalf("expected an error for a non-JSON payload")
	}
	if len(got) != 0 {
		t.Fatalf("malformed response must yield an empty mapping, got %v", got)
	}
}

func TestCategorizeServerError(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("POST", generateURL,
		httpmock.NewStringResponder(500, "internal"))

	got, err := client.Categorize(context.Background(), []string{"Acme"})
	if err == nil {
		t.Fatalf("expected an error for a 500")
	}
	if len(got) != 0 {
		t.Fatalf("failed batch must map nothing, got %v", got)
	}
}

func TestCategorizeEmptyBatchSkipsRequest(t *testing.T) {
	client := newMockedClient(t)

	got, err := client.Categorize(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("Categorize(nil) = (%v, %v)", got, err)
	}
	if httpmock.GetTotalCallCount() != 0 {
		t.Fatalf("empty batch still issued a request")
	}
}

func TestPromptCarriesAllNamesAndCategories(t *testing.T) {
	prompt := buildPrompt([]string{"Acme", "Bistro"})
	for _, want := range []string{"Acme", "Bistro", "Food & Drink", "E-commerce"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, `{"ShopName1": "Fashion", "ShopName2": "Travel"}`) {
		t.Fatalf("prompt missing example format")
	}
}
