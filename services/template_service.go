package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Template syntax: {{path.to.var}} interpolates a dotted path into the
// variable map, {{#if path}}...{{/if}} renders its body only when the named
// variable is present and truthy. Missing variables render as empty string
// so partial event payloads never break a send.
var (
	templateTagPattern   = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	templateVarPattern   = regexp.MustCompile(`^\{\{\s*([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}$`)
	sectionOpenPattern   = regexp.MustCompile(`\{\{#if\s+([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)
	sectionClosePattern  = regexp.MustCompile(`\{\{\s*/if\s*\}\}`)
	anchoredOpenPattern  = regexp.MustCompile(`^\{\{#if\s+[A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*\s*\}\}$`)
	anchoredClosePattern = regexp.MustCompile(`^\{\{\s*/if\s*\}\}$`)
)

// ValidateTemplate checks template syntax without materializing output.
// Step writes call this so a broken template can never reach a live step.
func ValidateTemplate(tmpl string) error {
	depth := 0
	for _, loc := range templateTagPattern.FindAllStringIndex(tmpl, -1) {
		tag := tmpl[loc[0]:loc[1]]
		inner := strings.TrimSpace(tag[2 : len(tag)-2])
		switch {
		case strings.HasPrefix(inner, "#"):
			if !anchoredOpenPattern.MatchString(tag) {
				return &TemplateError{Detail: fmt.Sprintf("unsupported directive %q", tag)}
			}
			depth++
		case strings.HasPrefix(inner, "/"):
			if !anchoredClosePattern.MatchString(tag) {
				return &TemplateError{Detail: fmt.Sprintf("unsupported directive %q", tag)}
			}
			depth--
			if depth < 0 {
				return &TemplateError{Detail: "{{/if}} without matching {{#if}}"}
			}
		default:
			if !templateVarPattern.MatchString(tag) {
				return &TemplateError{Detail: fmt.Sprintf("invalid variable reference %q", tag)}
			}
		}
	}
	if depth != 0 {
		return &TemplateError{Detail: "unclosed {{#if}} section"}
	}
	return nil
}

// RenderTemplate renders tmpl against the variable map. It fails only on
// syntax errors; unresolved variables become empty strings.
func RenderTemplate(tmpl string, vars map[string]interface{}) (string, error) {
	if err := ValidateTemplate(tmpl); err != nil {
		return "", err
	}
	out := resolveSections(tmpl, vars)
	out = templateTagPattern.ReplaceAllStringFunc(out, func(tag string) string {
		m := templateVarPattern.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}
		v, ok := lookupVariable(vars, m[1])
		if !ok {
			return ""
		}
		return formatTemplateValue(v)
	})
	return out, nil
}

// resolveSections strips or keeps {{#if}} blocks, innermost scanning from
// the left with depth counting so nested sections behave.
func resolveSections(tmpl string, vars map[string]interface{}) string {
	for {
		open := sectionOpenPattern.FindStringSubmatchIndex(tmpl)
		if open == nil {
			return tmpl
		}
		name := tmpl[open[2]:open[3]]

		depth := 1
		searchFrom := open[1]
		closeStart, closeEnd := -1, -1
		for depth > 0 {
			rest := tmpl[searchFrom:]
			nextOpen := sectionOpenPattern.FindStringIndex(rest)
			nextClose := sectionClosePattern.FindStringIndex(rest)
			if nextClose == nil {
				// Unbalanced section; validation prevents this on stored
				// templates, bail out rather than loop.
				return tmpl
			}
			if nextOpen != nil && nextOpen[0] < nextClose[0] {
				depth++
				searchFrom += nextOpen[1]
				continue
			}
			depth--
			closeStart = searchFrom + nextClose[0]
			closeEnd = searchFrom + nextClose[1]
			searchFrom = closeEnd
		}

		body := ""
		if v, ok := lookupVariable(vars, name); ok && isTruthy(v) {
			body = tmpl[open[1]:closeStart]
		}
		tmpl = tmpl[:open[0]] + body + tmpl[closeEnd:]
	}
}

func lookupVariable(vars map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = vars
	for _, seg := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]interface{}:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func formatTemplateValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format("2006-01-02 15:04")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case map[string]interface{}:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// PreviewTemplate renders tmpl against the fixed sample dataset for the
// event kind. Pure function, used by the admin preview endpoint.
func PreviewTemplate(tmpl, eventKind string) (string, error) {
	return RenderTemplate(tmpl, SampleVariables(eventKind))
}

// TemplateVariableNames lists the dotted variable paths available to
// templates for a given event kind, sorted for stable display.
func TemplateVariableNames(eventKind string) []string {
	var names []string
	var walk func(prefix string, v interface{})
	walk = func(prefix string, v interface{}) {
		m, ok := v.(map[string]interface{})
		if !ok {
			names = append(names, prefix)
			return
		}
		for k, child := range m {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walk(p, child)
		}
	}
	walk("", SampleVariables(eventKind))
	sort.Strings(names)
	return names
}
