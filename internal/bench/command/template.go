package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Template is an external command whose arguments may carry {{param}}
// placeholders, e.g. sysbench --threads={{threads}}.
type Template struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

type Params map[string]any

// Command is a fully rendered invocation.
type Command struct {
	Path string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

func (t Template) IsZero() bool {
	return t.Path == ""
}

func (t Template) Render(params Params) (Command, error) {
	path, err := render(t.Path, params)
	if err != nil {
		return Command{}, err
	}

	args := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		r, err := render(a, params)
		if err != nil {
			return Command{}, err
		}
		args = append(args, r)
	}

	return Command{Path: path, Args: args}, nil
}

func (t Template) RequiredParams() []string {
	seen := make(map[string]bool)
	var params []string

	for _, s := range append([]string{t.Path}, t.Args...) {
		for _, m := range placeholderRegex.FindAllStringSubmatch(s, -1) {
			if len(m) > 1 && !seen[m[1]] {
				seen[m[1]] = true
				params = append(params, m[1])
			}
		}
	}

	return params
}

func (t Template) Validate() error {
	if t.Path == "" {
		return fmt.Errorf("command has no path")
	}
	return nil
}

func render(s string, params Params) (string, error) {
	result := placeholderRegex.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-2]
		if val, ok := params[key]; ok {
			return formatValue(val)
		}
		return match
	})

	missing := findMissingPlaceholders(result)
	if len(missing) > 0 {
		return "", fmt.Errorf("command %q missing params: %v", s, missing)
	}
	return result, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func findMissingPlaceholders(s string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var missing []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			seen[m[1]] = true
			missing = append(missing, m[1])
		}
	}
	return missing
}
