package services

import (
	"strings"
	"testing"
)

func TestRenderTemplateInterpolatesDottedPaths(t *testing.T) {
	out, err := RenderTemplate("Hello {{user.name}}", map[string]interface{}{
		"user": map[string]interface{}{"name": "Linh"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello Linh" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderTemplateMissingVariableResolvesEmpty(t *testing.T) {
	out, err := RenderTemplate("Hello {{user.name}}", map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello " {
		t.Fatalf("got %q", out)
	}
}

func TestRenderTemplateConditionalSection(t *testing.T) {
	tmpl := "Welcome!{{#if temp_password}} Your password is {{temp_password}}.{{/if}} Bye."

	out, err := RenderTemplate(tmpl, map[string]interface{}{"temp_password": "ZLP123456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Welcome! Your password is ZLP123456. Bye." {
		t.Fatalf("got %q", out)
	}

	out, err = RenderTemplate(tmpl, map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Welcome! Bye." {
		t.Fatalf("got %q", out)
	}
}

func TestRenderTemplateNestedConditionals(t *testing.T) {
	tmpl := "{{#if user}}hi {{user.name}}{{#if temp_password}} pw={{temp_password}}{{/if}}{{/if}}"
	out, err := RenderTemplate(tmpl, map[string]interface{}{
		"user":          map[string]interface{}{"name": "An"},
		"temp_password": "x1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hi An pw=x1" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderTemplateFalsyValuesSkipSection(t *testing.T) {
	for _, v := range []interface{}{nil, "", false, 0, float64(0)} {
		out, err := RenderTemplate("{{#if flag}}yes{{/if}}no", map[string]interface{}{"flag": v})
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", v, err)
		}
		if out != "no" {
			t.Fatalf("value %v: got %q", v, out)
		}
	}
}

func TestRenderTemplateNumberFormatting(t *testing.T) {
	out, err := RenderTemplate("Total: {{order.amount}}", map[string]interface{}{
		"order": map[string]interface{}{"amount": float64(299000)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Total: 299000" {
		t.Fatalf("got %q", out)
	}
}

func TestValidateTemplateRejectsBadSyntax(t *testing.T) {
	cases := []struct {
		name string
		tmpl string
	}{
		{"unclosed section", "{{#if user}}hello"},
		{"stray close", "hello{{/if}}"},
		{"unknown directive", "{{#each items}}x{{/each}}"},
		{"bad variable", "{{user name}}"},
	}
	for _, tc := range cases {
		if err := ValidateTemplate(tc.tmpl); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidateTemplateAcceptsGoodSyntax(t *testing.T) {
	tmpl := "Hi {{user.name}}, {{#if course.title}}you bought {{course.title}}{{/if}}"
	if err := ValidateTemplate(tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPreviewTemplateUsesSampleData(t *testing.T) {
	tmpl := "You purchased {{course.title}}.{{#if temp_password}} Password: {{temp_password}}{{/if}}"
	out, err := PreviewTemplate(tmpl, "course.purchased")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Advanced Web Development") {
		t.Fatalf("missing course title: %q", out)
	}
	if !strings.Contains(out, "ZLP123456") {
		t.Fatalf("missing temp password: %q", out)
	}
}

func TestTemplateVariableNamesSorted(t *testing.T) {
	names := TemplateVariableNames("course.purchased")
	want := map[string]bool{
		"user.email": true, "course.title": true, "order.amount": true, "temp_password": true,
	}
	found := 0
	for i, n := range names {
		if i > 0 && names[i-1] > n {
			t.Fatalf("names not sorted: %v", names)
		}
		if want[n] {
			found++
		}
	}
	if found != len(want) {
		t.Fatalf("missing expected variables in %v", names)
	}
}
