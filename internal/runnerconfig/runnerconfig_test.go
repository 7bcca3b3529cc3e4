package runnerconfig_test

import (
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/runnerconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOS struct {
	env   map[string]string
	files map[string][]byte
}

func newFakeOS() *fakeOS {
	return &fakeOS{env: map[string]string{}, files: map[string][]byte{}}
}

func (f *fakeOS) Getenv(key string) string { return f.env[key] }

func (f *fakeOS) Environ() []string {
	out := make([]string, 0, len(f.env))
	for k, v := range f.env {
		out = append(out, k+"="+v)
	}
	return out
}

func (f *fakeOS) Stat(name string) (os.FileInfo, error) {
	if _, ok := f.files[name]; ok {
		return fileInfo(name), nil
	}
	return nil, os.ErrNotExist
}

func (f *fakeOS) ReadFile(name string) ([]byte, error) {
	if data, ok := f.files[name]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

type fileInfo string

func (fi fileInfo) Name() string       { return string(fi) }
func (fi fileInfo) Size() int64        { return 0 }
func (fi fileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }

var _ config.OSInterface = (*fakeOS)(nil)

func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := runnerconfig.Load("../../config/e2e/runner.yaml")
	require.NoError(t, err)

	assert.False(t, cfg.VerifySSL)
	assert.Equal(t, []runnerconfig.Browser{runnerconfig.BrowserChromium}, cfg.Browsers())
	assert.True(t, cfg.Projects.API.Enabled)
	assert.Equal(t, "http://panoptes.test", cfg.Projects.API.Opts.Use.BaseURL)
	assert.Equal(t, map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}, cfg.Headers())
	assert.Equal(t, "../../config/e2e/runner.yaml", cfg.ConfigFilePath())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := runnerconfig.LoadWithOS("", newFakeOS())
	require.NoError(t, err)

	def := runnerconfig.Default()
	assert.Equal(t, def.VerifySSL, cfg.VerifySSL)
	assert.Equal(t, def.EnabledBrowsers, cfg.EnabledBrowsers)
	assert.Equal(t, "", cfg.ConfigFilePath())
}

func TestLoad_FileFromDefaultLocation(t *testing.T) {
	fos := newFakeOS()
	fos.files["config/e2e/runner.yaml"] = []byte(`
verifySSL: true
enabledBrowsers: [firefox, chromium]
projects:
  api:
    enabled: true
    opts:
      use:
        baseURL: https://staging.panoptes.dev
        extraHTTPHeaders:
          X-Trace: "1"
`)

	cfg, err := runnerconfig.LoadWithOS("", fos)
	require.NoError(t, err)

	assert.True(t, cfg.VerifySSL)
	assert.Equal(t, []runnerconfig.Browser{runnerconfig.BrowserFirefox, runnerconfig.BrowserChromium}, cfg.Browsers(), "order is preserved and the default list replaced")
	assert.Equal(t, "https://staging.panoptes.dev", cfg.Projects.API.Opts.Use.BaseURL)
	assert.Equal(t, "1", cfg.Headers()["X-Trace"])
	assert.Equal(t, "application/json", cfg.Headers()["Accept"], "default headers are kept")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	fos := newFakeOS()
	fos.files["runner.yaml"] = []byte("verifySSL: false\nenabledBrowsers: [chromium]\n")
	fos.env["PANOPTES_E2E_VERIFY_SSL"] = "true"
	fos.env["PANOPTES_E2E_BROWSERS"] = "webkit,firefox"
	fos.env["PANOPTES_E2E_API_BASE_URL"] = "http://localhost:9999"

	cfg, err := runnerconfig.LoadWithOS("runner.yaml", fos)
	require.NoError(t, err)

	assert.True(t, cfg.VerifySSL)
	assert.Equal(t, []runnerconfig.Browser{runnerconfig.BrowserWebkit, runnerconfig.BrowserFirefox}, cfg.Browsers())
	assert.Equal(t, "http://localhost:9999", cfg.Projects.API.Opts.Use.BaseURL)
}

func TestLoad_VerifySSLFromEnv(t *testing.T) {
	fos := newFakeOS()
	fos.env["PANOPTES_E2E_VERIFY_SSL"] = "true"

	cfg, err := runnerconfig.LoadWithOS("", fos)
	require.NoError(t, err)

	api, ok, err := cfg.Project(runnerconfig.ProjectAPI, runnerconfig.DefaultUseOpts())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cfg.VerifySSL)
	assert.False(t, cfg.TLSInsecure(api), "verification is enabled by the env var alone")
}

func TestLoad_VerifySSLFromEnvOverShippedFile(t *testing.T) {
	fos := newFakeOS()
	fos.files["runner.yaml"] = []byte("verifySSL: false\nprojects:\n  api:\n    enabled: true\n    opts:\n      use:\n        ignoreHTTPSErrors: true\n")
	fos.env["PANOPTES_E2E_VERIFY_SSL"] = "true"

	cfg, err := runnerconfig.LoadWithOS("runner.yaml", fos)
	require.NoError(t, err)

	api, _, err := cfg.Project(runnerconfig.ProjectAPI, runnerconfig.DefaultUseOpts())
	require.NoError(t, err)
	assert.False(t, cfg.TLSInsecure(api))
}

func TestLoad_IgnoreHTTPSErrorsEnvWins(t *testing.T) {
	fos := newFakeOS()
	fos.env["PANOPTES_E2E_VERIFY_SSL"] = "true"
	fos.env["PANOPTES_E2E_API_IGNORE_HTTPS_ERRORS"] = "true"

	cfg, err := runnerconfig.LoadWithOS("", fos)
	require.NoError(t, err)

	api, _, err := cfg.Project(runnerconfig.ProjectAPI, runnerconfig.DefaultUseOpts())
	require.NoError(t, err)
	assert.True(t, cfg.TLSInsecure(api))
}

func TestLoad_BrowsersEnvWithSpaces(t *testing.T) {
	fos := newFakeOS()
	fos.env["PANOPTES_E2E_BROWSERS"] = "chromium, firefox"

	cfg, err := runnerconfig.LoadWithOS("", fos)
	require.NoError(t, err)
	assert.Equal(t, []runnerconfig.Browser{runnerconfig.BrowserChromium, runnerconfig.BrowserFirefox}, cfg.Browsers())
}

func TestLoad_PathFromEnv(t *testing.T) {
	fos := newFakeOS()
	fos.files["/etc/e2e.yaml"] = []byte("enabledBrowsers: [webkit]\n")
	fos.env[runnerconfig.ConfigPathEnv] = "/etc/e2e.yaml"

	cfg, err := runnerconfig.LoadWithOS("", fos)
	require.NoError(t, err)
	assert.Equal(t, []runnerconfig.Browser{runnerconfig.BrowserWebkit}, cfg.Browsers())

	_, err = runnerconfig.LoadWithOS("other.yaml", fos)
	assert.ErrorContains(t, err, "conflicting runner config paths")
}

func TestLoad_InvalidFile(t *testing.T) {
	fos := newFakeOS()
	fos.files["bad.yaml"] = []byte("enabledBrowsers: [lynx]\n")

	_, err := runnerconfig.LoadWithOS("bad.yaml", fos)
	assert.ErrorIs(t, err, runnerconfig.ErrUnknownBrowser)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *runnerconfig.Config)
		wantErr error
	}{
		{
			name:   "default is valid",
			mutate: func(c *runnerconfig.Config) {},
		},
		{
			name: "no browsers",
			mutate: func(c *runnerconfig.Config) {
				c.EnabledBrowsers = nil
			},
			wantErr: runnerconfig.ErrNoBrowsers,
		},
		{
			name: "duplicate browser",
			mutate: func(c *runnerconfig.Config) {
				c.EnabledBrowsers = []runnerconfig.Browser{"chromium", "chromium"}
			},
			wantErr: runnerconfig.ErrDuplicateBrowser,
		},
		{
			name: "relative base url",
			mutate: func(c *runnerconfig.Config) {
				c.Projects.API.Opts.Use.BaseURL = "/api"
			},
			wantErr: runnerconfig.ErrInvalidBaseURL,
		},
		{
			name: "disabled project skips base url check",
			mutate: func(c *runnerconfig.Config) {
				c.Projects.API.Enabled = false
				c.Projects.API.Opts.Use.BaseURL = ""
			},
		},
		{
			name: "negative timeout",
			mutate: func(c *runnerconfig.Config) {
				c.Projects.API.Opts.Use.TimeoutSeconds = -5
			},
			wantErr: runnerconfig.ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := runnerconfig.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	cfg := runnerconfig.Default()

	browsers := cfg.Browsers()
	browsers[0] = runnerconfig.BrowserWebkit
	headers := cfg.Headers()
	headers["Accept"] = "text/html"

	assert.Equal(t, runnerconfig.BrowserChromium, cfg.EnabledBrowsers[0])
	assert.Equal(t, "application/json", cfg.Projects.API.Opts.Use.ExtraHTTPHeaders["Accept"])
}

func TestResolveProjects(t *testing.T) {
	cfg := runnerconfig.Default()
	cfg.Projects.API.Opts.Use.ExtraHTTPHeaders["User-Agent"] = "custom"

	defaults := runnerconfig.DefaultUseOpts()
	projects, err := cfg.ResolveProjects(defaults)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	api := projects[0]
	assert.Equal(t, runnerconfig.ProjectAPI, api.Name)
	assert.Equal(t, "http://panoptes.test", api.Use.BaseURL)
	assert.True(t, api.Use.IgnoreHTTPSErrors)
	assert.Equal(t, 30, api.Use.TimeoutSeconds, "unset timeout keeps the default")
	assert.Equal(t, map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"User-Agent":   "custom",
	}, api.Use.ExtraHTTPHeaders)

	assert.Equal(t, "panoptes-e2e", defaults.ExtraHTTPHeaders["User-Agent"], "defaults are not mutated")
}

func TestResolveProjects_Disabled(t *testing.T) {
	cfg := runnerconfig.Default()
	cfg.Projects.API.Enabled = false

	projects, err := cfg.ResolveProjects(runnerconfig.DefaultUseOpts())
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, ok, err := cfg.Project(runnerconfig.ProjectAPI, runnerconfig.DefaultUseOpts())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTLSInsecure(t *testing.T) {
	cfg := runnerconfig.Default()
	strict := runnerconfig.RunnerProject{Name: "api"}
	lenient := runnerconfig.RunnerProject{Name: "api", Use: runnerconfig.UseOpts{IgnoreHTTPSErrors: true}}

	assert.True(t, cfg.TLSInsecure(strict), "verifySSL=false skips verification")

	cfg.VerifySSL = true
	assert.False(t, cfg.TLSInsecure(strict))
	assert.True(t, cfg.TLSInsecure(lenient))
}
