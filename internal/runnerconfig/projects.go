package runnerconfig

import (
	"fmt"
	"maps"
	"sort"

	"dario.cat/mergo"
)

// DefaultUseOpts are the runner's own project defaults that a project's
// options are merged over.
func DefaultUseOpts() UseOpts {
	return UseOpts{
		TimeoutSeconds: 30,
		ExtraHTTPHeaders: map[string]string{
			"User-Agent": "panoptes-e2e",
		},
	}
}

// ResolveProjects returns every enabled project with its options merged over
// defaults, sorted by name. Set fields win, zero fields keep the default and
// header maps are merged key by key.
func (c *Config) ResolveProjects(defaults UseOpts) ([]RunnerProject, error) {
	var out []RunnerProject
	for name, p := range c.projects() {
		if !p.Enabled {
			continue
		}

		use := cloneUseOpts(defaults)
		if err := mergo.Merge(&use, cloneUseOpts(p.Opts.Use), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge options for project %s: %w", name, err)
		}
		out = append(out, RunnerProject{Name: name, Use: use})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Project returns the resolved project with the given name.
func (c *Config) Project(name string, defaults UseOpts) (RunnerProject, bool, error) {
	projects, err := c.ResolveProjects(defaults)
	if err != nil {
		return RunnerProject{}, false, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p, true, nil
		}
	}
	return RunnerProject{}, false, nil
}

func cloneUseOpts(u UseOpts) UseOpts {
	u.ExtraHTTPHeaders = maps.Clone(u.ExtraHTTPHeaders)
	return u
}
