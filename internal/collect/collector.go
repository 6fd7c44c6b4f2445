package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/badgebind/internal/datadoc"
)

// Fetcher retrieves one raw API response.
type Fetcher interface {
	FetchEndpoint(ctx context.Context, url string) ([]byte, error)
}

// Report summarizes a collection run.
type Report struct {
	UserID    string   `json:"user_id"`
	TeamID    string   `json:"team_id,omitempty"`
	Responses int      `json:"responses"`
	Skipped   []string `json:"skipped,omitempty"`
	Keys      int      `json:"keys"`
	Changes   []Change `json:"changes,omitempty"`
	Path      string   `json:"path,omitempty"`
}

// Collector runs the fetch, store, flatten and rewrite steps.
type Collector struct {
	client Fetcher
	store  *Store
	apiURL string
	rules  []Rule
	log    *slog.Logger
	now    func() time.Time
}

func NewCollector(client Fetcher, store *Store, apiURL string, rules []Rule, log *slog.Logger) *Collector {
	return &Collector{
		client: client,
		store:  store,
		apiURL: apiURL,
		rules:  rules,
		log:    log,
		now:    time.Now,
	}
}

// Fetch replaces the stored responses with fresh ones for userID. Every
// user endpoint must succeed; team endpoints are fetched only when the
// profile names a team, and a failing one is skipped.
func (c *Collector) Fetch(ctx context.Context, userID string) (Report, error) {
	rep := Report{UserID: userID}
	if err := c.store.Clear(); err != nil {
		return rep, fmt.Errorf("clear store: %w", err)
	}

	n := 1
	var profile []byte
	for _, ep := range UserEndpoints(c.apiURL, userID) {
		data, err := c.client.FetchEndpoint(ctx, ep.URL)
		if err != nil {
			return rep, fmt.Errorf("user endpoint %s (profile may be private): %w", ep.Name, err)
		}
		if err := c.store.Put(ResponseKey("ud", n, ep.Name), data); err != nil {
			return rep, fmt.Errorf("store %s: %w", ep.Name, err)
		}
		if n == 1 {
			profile = data
		}
		n++
		rep.Responses++
	}

	rep.TeamID = teamID(profile)
	if rep.TeamID == "" {
		c.log.Info("no team in profile, skipping team data", "user_id", userID)
		return rep, nil
	}
	c.log.Info("team found", "team_id", rep.TeamID)

	for _, ep := range TeamEndpoints(c.apiURL, rep.TeamID) {
		data, err := c.client.FetchEndpoint(ctx, ep.URL)
		if err != nil {
			c.log.Warn("team endpoint failed", "endpoint", ep.Name, "error", err)
			rep.Skipped = append(rep.Skipped, ep.Name)
			continue
		}
		if err := c.store.Put(ResponseKey("ut", n, ep.Name), data); err != nil {
			return rep, fmt.Errorf("store %s: %w", ep.Name, err)
		}
		n++
		rep.Responses++
	}
	return rep, nil
}

// Build turns the stored responses into the stamped, rewritten dataset.
func (c *Collector) Build() (*datadoc.Mapping, []Change, error) {
	m, err := BuildDataset(c.store)
	if err != nil {
		return nil, nil, err
	}
	if err := Stamp(m, c.now()); err != nil {
		return nil, nil, err
	}
	out, changes := Apply(m, c.rules)
	return out, changes, nil
}

// Refresh fetches, builds and writes the dataset to path.
func (c *Collector) Refresh(ctx context.Context, userID, path string) (Report, error) {
	rep, err := c.Fetch(ctx, userID)
	if err != nil {
		return rep, err
	}
	m, changes, err := c.Build()
	if err != nil {
		return rep, err
	}
	if err := WriteDataset(path, m); err != nil {
		return rep, err
	}
	rep.Keys = m.Len()
	rep.Changes = changes
	rep.Path = path
	c.log.Info("dataset written", "path", path, "keys", rep.Keys, "changes", len(changes), "responses", rep.Responses)
	return rep, nil
}

func teamID(profile []byte) string {
	if profile == nil {
		return ""
	}
	doc, err := datadoc.Parse(profile, datadoc.FormatJSON)
	if err != nil {
		return ""
	}
	v, ok := datadoc.Resolve(doc, "profile.team.id")
	if !ok || v.Kind == datadoc.KindNull || v.Text == "" || v.Text == "0" {
		return ""
	}
	return v.String()
}
