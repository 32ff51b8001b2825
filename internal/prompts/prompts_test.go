package prompts

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Hello {{.Name}}, you have {{ .Count }} items from {{.Name}}", []string{"Count", "Name"}},
		{"{{- .Transcript -}}", []string{"Transcript"}},
		{"nested {{.Contact.Phone}}", []string{"Contact.Phone"}},
		{"no variables", nil},
	}
	for _, tt := range tests {
		if got := ExtractVariables(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractVariables(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHashText(t *testing.T) {
	a := HashText("prompt")
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a != HashText("prompt") {
		t.Error("hash should be deterministic")
	}
	if a == HashText("prompt ") {
		t.Error("different text should hash differently")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(EmbeddedPrompt{Key: "b.user", Text: "{{.X}}"})
	r.Register(EmbeddedPrompt{Key: "a.user", Text: "plain", Hash: "fixed"})

	p, err := r.Get("b.user")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Hash != HashText("{{.X}}") || !reflect.DeepEqual(p.Variables, []string{"X"}) {
		t.Errorf("registered prompt = %+v", p)
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown key")
	}

	all := r.All()
	if len(all) != 2 || all[0].Key != "a.user" || all[0].Hash != "fixed" {
		t.Errorf("All() = %+v", all)
	}
}
