package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/badgebind/internal/datadoc"
)

// Keys written by Stamp ahead of the collected data.
const (
	KeyLastUpdate   = "last_update"
	KeyLastActivity = "last_activity"

	// activityKey holds the age of the most recent activity entry.
	activityKey = "user_profile_activity_1_date_diff"
)

// Flatten turns a nested document into a flat key/value list. Nested keys
// are joined with sep and sequence items get their index appended. Empty
// mappings and sequences produce nothing.
func Flatten(doc datadoc.Document, sep string) []datadoc.Entry {
	var out []datadoc.Entry
	flatten(doc, "", sep, &out)
	return out
}

func flatten(doc datadoc.Document, prefix, sep string, out *[]datadoc.Entry) {
	switch v := doc.(type) {
	case *datadoc.Mapping:
		for _, e := range v.Entries() {
			key := e.Key
			if prefix != "" {
				key = prefix + sep + e.Key
			}
			flatten(e.Value, key, sep, out)
		}
	case datadoc.Sequence:
		for i, item := range v {
			flatten(item, fmt.Sprintf("%s%s%d", prefix, sep, i), sep, out)
		}
	case datadoc.Scalar:
		*out = append(*out, datadoc.Entry{Key: prefix, Value: v})
	}
}

// BuildDataset merges the stored responses into one flat mapping. Keys from
// user responses get a "user_" prefix and team ones "team_". A key seen
// again keeps its first position and takes the later value.
func BuildDataset(s *Store) (*datadoc.Mapping, error) {
	m := datadoc.NewMapping()
	err := s.Each(func(key string, data []byte) error {
		doc, err := datadoc.Parse(data, datadoc.FormatJSON)
		if err != nil {
			return fmt.Errorf("response %s: %w", key, err)
		}
		prefix := ""
		switch {
		case strings.HasPrefix(key, "ud"):
			prefix = "user_"
		case strings.HasPrefix(key, "ut"):
			prefix = "team_"
		}
		for _, e := range Flatten(doc, "_") {
			m.Set(prefix+e.Key, e.Value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Stamp records when the dataset was built and the age of the latest
// activity. Existing stamp keys are updated in place; new ones go first.
func Stamp(m *datadoc.Mapping, now time.Time) error {
	v, ok := m.Get(activityKey)
	if !ok {
		return fmt.Errorf("dataset has no %s", activityKey)
	}
	activity, ok := v.(datadoc.Scalar)
	if !ok || activity.Kind == datadoc.KindNull {
		return fmt.Errorf("dataset has no value for %s", activityKey)
	}

	stamps := []datadoc.Entry{
		{Key: KeyLastUpdate, Value: datadoc.String(FormatUpdateTime(now))},
		{Key: KeyLastActivity, Value: datadoc.String(activity.String())},
	}
	var missing []datadoc.Entry
	for _, e := range stamps {
		if _, exists := m.Get(e.Key); exists {
			m.Set(e.Key, e.Value)
		} else {
			missing = append(missing, e)
		}
	}
	m.Prepend(missing...)
	return nil
}

// FormatUpdateTime renders t in UTC, e.g. "05 Mar 2025, 14:07:09 (UTC+00:00)".
func FormatUpdateTime(t time.Time) string {
	return t.UTC().Format("02 Jan 2006, 15:04:05 (UTC-07:00)")
}

// WriteDataset writes m as YAML to path, replacing the file atomically.
func WriteDataset(path string, m *datadoc.Mapping) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*.yml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := datadoc.Encode(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}
