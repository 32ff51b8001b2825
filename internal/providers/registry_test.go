package providers

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Get(); !errors.Is(err, ErrNoExtractor) {
		t.Errorf("Get() error = %v, want ErrNoExtractor", err)
	}
	if _, err := r.Extract(context.Background(), "p", contactsContract()); !errors.Is(err, ErrNoExtractor) {
		t.Errorf("Extract() error = %v, want ErrNoExtractor", err)
	}
}

func TestRegistry_Reload(t *testing.T) {
	r, err := NewRegistryFromConfig(AnthropicConfig{APIKey: "one", Model: "m1"})
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}
	first, _ := r.Get()

	// Same config keeps the same client.
	if err := r.Reload(AnthropicConfig{APIKey: "one", Model: "m1"}); err != nil {
		t.Fatal(err)
	}
	if same, _ := r.Get(); same != first {
		t.Error("unchanged config should not rebuild the client")
	}

	// Changed model rebuilds.
	if err := r.Reload(AnthropicConfig{APIKey: "one", Model: "m2"}); err != nil {
		t.Fatal(err)
	}
	second, _ := r.Get()
	if second == first {
		t.Error("changed config should rebuild the client")
	}
	if second.(*AnthropicClient).Model() != "m2" {
		t.Errorf("model = %s", second.(*AnthropicClient).Model())
	}

	// Invalid config leaves the previous client in place.
	if err := r.Reload(AnthropicConfig{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Reload() error = %v, want ErrMissingAPIKey", err)
	}
	if kept, _ := r.Get(); kept != second {
		t.Error("failed reload should keep the previous client")
	}
}

func TestRegistry_DelegatesToMock(t *testing.T) {
	mock := NewMockExtractor(ExtractedResult{"contacts": []any{}})
	r := NewRegistry(nil)
	r.Set(mock)

	result, err := r.Extract(context.Background(), "hello", contactsContract())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, ok := result["contacts"]; !ok {
		t.Errorf("result = %v", result)
	}
	if mock.Calls() != 1 || mock.Prompts()[0] != "hello" {
		t.Errorf("mock calls = %d, prompts = %v", mock.Calls(), mock.Prompts())
	}
}

func TestMockExtractor_Validate(t *testing.T) {
	mock := &MockExtractor{Result: ExtractedResult{"other": 1.0}, Validate: true}
	if _, err := mock.Extract(context.Background(), "p", contactsContract()); Classify(err) != KindValidation {
		t.Errorf("Extract() error = %v, want validation", err)
	}
}

func TestMultiObserver(t *testing.T) {
	var got []string
	obs := MultiObserver{
		ObserverFunc(func(_ context.Context, r CallReport) { got = append(got, "a:"+r.RequestID) }),
		nil,
		ObserverFunc(func(_ context.Context, r CallReport) { got = append(got, "b:"+r.RequestID) }),
	}
	obs.ObserveCall(context.Background(), CallReport{RequestID: "x"})
	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Errorf("observed = %v", got)
	}
}
