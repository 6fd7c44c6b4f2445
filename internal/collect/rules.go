package collect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/badgebind/internal/datadoc"
)

// Op is a dataset rewrite operation.
type Op string

const (
	OpRemove      Op = "-r"  // remove text from keys and values
	OpRemoveEntry Op = "-rF" // drop entries whose key contains text
	OpReplace     Op = "-c"  // replace text in keys and values
	OpKeyPrefix   Op = "+k"  // prefix keys containing text
	OpKeySuffix   Op = "k+"  // suffix keys containing text
	OpValuePrefix Op = "+v"  // prefix values containing text
	OpValueSuffix Op = "v+"  // append to values containing text
)

// Rule is one parsed rewrite, e.g. `-c "user_profile_" "user_"`.
type Rule struct {
	Op     Op
	Text   string
	Arg    string
	Silent bool
}

// Change records one entry touched by a rule.
type Change struct {
	Key    string `json:"key"`
	Old    string `json:"old"`
	New    string `json:"new"`
	Action string `json:"action"`
}

var (
	oneArgRule = regexp.MustCompile(`^(-rF|-r) "(.*)"$`)
	twoArgRule = regexp.MustCompile(`^(-c|\+k|k\+|\+v|v\+) "(.*)" "(.*)"$`)
)

// ParseRule parses the textual rule form. A leading "silent " keeps the
// rule's changes out of the report.
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	var r Rule
	if rest, ok := strings.CutPrefix(s, "silent "); ok {
		r.Silent = true
		s = rest
	}
	if m := oneArgRule.FindStringSubmatch(s); m != nil {
		r.Op, r.Text = Op(m[1]), m[2]
	} else if m := twoArgRule.FindStringSubmatch(s); m != nil {
		r.Op, r.Text, r.Arg = Op(m[1]), m[2], m[3]
	} else {
		return Rule{}, fmt.Errorf("invalid rule %q", s)
	}
	if r.Text == "" {
		return Rule{}, fmt.Errorf("rule %q: empty match text", s)
	}
	return r, nil
}

// ParseRules parses a list of rules, stopping at the first invalid one.
func ParseRules(lines []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(lines))
	for _, l := range lines {
		r, err := ParseRule(l)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// DefaultRules shortens the API's key names and turns storage paths into
// absolute URLs on baseURL.
func DefaultRules(baseURL string) []Rule {
	base := strings.TrimRight(baseURL, "/")
	return []Rule{
		{Op: OpRemove, Text: "_thumb"},
		{Op: OpRemoveEntry, Text: "user_profile_sso_id"},
		{Op: OpReplace, Text: "_attack_paths_", Arg: "ap_"},
		{Op: OpReplace, Text: "user_profile_user_", Arg: "user_profile_"},
		{Op: OpReplace, Text: "user_profile_", Arg: "user_"},
		{Op: OpReplace, Text: "operating_systems", Arg: "os"},
		{Op: OpReplace, Text: "challenge_categories", Arg: "challenge_cat"},
		{Op: OpReplace, Text: "Window's Infinity", Arg: "Windows Infinity"},
		{Op: OpValuePrefix, Text: " /storage/", Arg: base},
	}
}

// Apply runs rules in order and returns the rewritten mapping. A key
// renamed onto an existing one keeps the earlier position and the later
// value.
func Apply(m *datadoc.Mapping, rules []Rule) (*datadoc.Mapping, []Change) {
	entries := append([]datadoc.Entry(nil), m.Entries()...)
	var changes []Change
	for _, r := range rules {
		var out []datadoc.Entry
		for _, e := range entries {
			next, keep, action := r.apply(e)
			if !keep {
				if !r.Silent {
					changes = append(changes, Change{Key: e.Key, Old: line(e), Action: action})
				}
				continue
			}
			if action != "" && !r.Silent {
				changes = append(changes, Change{Key: e.Key, Old: line(e), New: line(next), Action: action})
			}
			out = append(out, next)
		}
		entries = datadoc.NewMapping(out...).Entries()
	}
	return datadoc.NewMapping(entries...), changes
}

func line(e datadoc.Entry) string {
	return e.Key + ": " + valueText(e.Value)
}

func valueText(v datadoc.Document) string {
	if s, ok := v.(datadoc.Scalar); ok {
		return s.String()
	}
	return ""
}

// apply returns the rewritten entry, whether it survives, and the action
// name when something changed.
func (r Rule) apply(e datadoc.Entry) (datadoc.Entry, bool, string) {
	switch r.Op {
	case OpRemoveEntry:
		if strings.Contains(e.Key, r.Text) {
			return e, false, "deletion (entire entry)"
		}
	case OpRemove, OpReplace:
		key := strings.ReplaceAll(e.Key, r.Text, r.Arg)
		val, valChanged := replaceValue(e.Value, r.Text, r.Arg)
		if key != e.Key || valChanged {
			action := "replacement"
			if r.Op == OpRemove {
				action = "deletion"
			}
			return datadoc.Entry{Key: key, Value: val}, true, action
		}
	case OpKeyPrefix:
		if strings.Contains(e.Key, r.Text) {
			return datadoc.Entry{Key: r.Arg + e.Key, Value: e.Value}, true, "insertion before key"
		}
	case OpKeySuffix:
		if strings.Contains(e.Key, r.Text) {
			return datadoc.Entry{Key: e.Key + r.Arg, Value: e.Value}, true, "insertion after key"
		}
	case OpValuePrefix, OpValueSuffix:
		// Values are matched as they appear after "key:", with the leading space.
		s, ok := e.Value.(datadoc.Scalar)
		if !ok || s.Kind == datadoc.KindNull || !strings.Contains(" "+s.Text, r.Text) {
			break
		}
		if r.Op == OpValuePrefix {
			return datadoc.Entry{Key: e.Key, Value: datadoc.String(r.Arg + s.Text)}, true, "insertion before value"
		}
		return datadoc.Entry{Key: e.Key, Value: datadoc.String(s.Text + " " + r.Arg)}, true, "insertion after value"
	}
	return e, true, ""
}

// replaceValue rewrites the text of a scalar. A changed scalar becomes a
// string.
func replaceValue(v datadoc.Document, old, repl string) (datadoc.Document, bool) {
	s, ok := v.(datadoc.Scalar)
	if !ok || s.Kind == datadoc.KindNull {
		return v, false
	}
	text := strings.ReplaceAll(s.Text, old, repl)
	if text == s.Text {
		return v, false
	}
	return datadoc.String(text), true
}
