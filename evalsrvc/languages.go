package evalsrvc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/codeclash/backend/challsrvc"
)

// harness knows how to wrap submitted code so that the challenge's
// entry-point function is invoked with the test case's arguments in
// declared order and the return value is printed as canonical JSON.
type harness struct {
	execLangID int // language id on the execution service
	wrap       func(code, functionName, argsLiteral string) string
}

// Adding a language means registering a harness here; nothing else in
// the pipeline changes.
var harnesses = map[string]harness{
	"python": {
		execLangID: 71,
		wrap: func(code, fn, args string) string {
			var b strings.Builder
			b.WriteString("import json as _json\n\n")
			b.WriteString(code)
			b.WriteString("\n\n")
			fmt.Fprintf(&b, "_args = _json.loads(%s)\n", args)
			fmt.Fprintf(&b, "_result = %s(*_args)\n", fn)
			b.WriteString("print(_json.dumps(_result, separators=(\",\", \":\")))\n")
			return b.String()
		},
	},
	"javascript": {
		execLangID: 63,
		wrap: func(code, fn, args string) string {
			var b strings.Builder
			b.WriteString(code)
			b.WriteString("\n\n")
			fmt.Fprintf(&b, "const _args = JSON.parse(%s);\n", args)
			fmt.Fprintf(&b, "const _result = %s(..._args);\n", fn)
			b.WriteString("console.log(JSON.stringify(_result));\n")
			return b.String()
		},
	},
	"typescript": {
		execLangID: 74,
		wrap: func(code, fn, args string) string {
			var b strings.Builder
			b.WriteString(code)
			b.WriteString("\n\n")
			fmt.Fprintf(&b, "const _args: any[] = JSON.parse(%s);\n", args)
			fmt.Fprintf(&b, "const _result = (%s as any)(..._args);\n", fn)
			b.WriteString("console.log(JSON.stringify(_result));\n")
			return b.String()
		},
	},
}

// SupportedLanguages lists the language slugs submissions may use.
func SupportedLanguages() []string {
	out := make([]string, 0, len(harnesses))
	for k := range harnesses {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func IsSupportedLanguage(lang string) bool {
	_, ok := harnesses[lang]
	return ok
}

// wrapTestCase produces the standalone program for one test case.
func wrapTestCase(h harness, code, functionName string, tc challsrvc.TestCase) (string, error) {
	values := make([]string, len(tc.Input))
	for i, arg := range tc.Input {
		values[i] = string(arg.Value)
	}
	argsJSON := "[" + strings.Join(values, ",") + "]"
	// JSON string escaping yields a valid literal in python, javascript
	// and typescript alike; characters outside the BMP pass through as
	// plain UTF-8 instead of Go-only \U escapes
	quoted, err := json.Marshal(argsJSON)
	if err != nil {
		return "", err
	}
	return h.wrap(code, functionName, string(quoted)), nil
}
