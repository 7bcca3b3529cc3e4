// Package runnerconfig holds the settings the end-to-end runner is started
// with: which browser engines to target, whether TLS certificates are
// verified and how each capability project reaches the service under test.
package runnerconfig

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix     = "PANOPTES_E2E_"
	ConfigPathEnv = EnvPrefix + "CONFIG"

	ProjectAPI = "api"
)

func getConfigLocations() []string {
	return []string{
		".panoptes-e2e.yaml",
		"config/e2e/runner.yaml",
		"/config/panoptes/e2e.yaml",
	}
}

type Browser string

const (
	BrowserChromium Browser = "chromium"
	BrowserFirefox  Browser = "firefox"
	BrowserWebkit   Browser = "webkit"
)

var knownBrowsers = []Browser{
	BrowserChromium,
	BrowserFirefox,
	BrowserWebkit,
}

func (b Browser) IsKnown() bool {
	return slices.Contains(knownBrowsers, b)
}

type Config struct {
	configPath string

	VerifySSL       bool      `yaml:"verifySSL" env:"VERIFY_SSL"`
	EnabledBrowsers []Browser `yaml:"enabledBrowsers" env:"BROWSERS" envSeparator:","`
	Projects        Projects  `yaml:"projects"`
}

type Projects struct {
	API Project `yaml:"api" envPrefix:"API_"`
}

type Project struct {
	Enabled bool        `yaml:"enabled" env:"ENABLED"`
	Opts    ProjectOpts `yaml:"opts"`
}

type ProjectOpts struct {
	Use UseOpts `yaml:"use"`
}

// UseOpts is merged over the runner's own project defaults. Zero values
// leave the default in place.
type UseOpts struct {
	BaseURL           string            `yaml:"baseURL" env:"BASE_URL"`
	IgnoreHTTPSErrors bool              `yaml:"ignoreHTTPSErrors" env:"IGNORE_HTTPS_ERRORS"`
	ExtraHTTPHeaders  map[string]string `yaml:"extraHTTPHeaders"`
	TimeoutSeconds    int               `yaml:"timeoutSeconds" env:"TIMEOUT_SECONDS"`
}

// RunnerProject is a capability ready to run, with its options resolved.
type RunnerProject struct {
	Name string
	Use  UseOpts
}

// Default returns the stock runner configuration: chromium only, certificate
// verification off and the api project pointed at the local test host.
func Default() Config {
	return Config{
		VerifySSL:       false,
		EnabledBrowsers: []Browser{BrowserChromium},
		Projects: Projects{
			API: Project{
				Enabled: true,
				Opts: ProjectOpts{
					Use: UseOpts{
						BaseURL:           "http://panoptes.test",
						IgnoreHTTPSErrors: true,
						ExtraHTTPHeaders: map[string]string{
							"Accept":       "application/json",
							"Content-Type": "application/json",
						},
					},
				},
			},
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithOS(path, config.SystemOS())
}

// LoadWithOS builds a Config with the precedence defaults < yaml file <
// environment and validates the result.
func LoadWithOS(path string, osInterface config.OSInterface) (*Config, error) {
	cfg := Default()

	if err := cfg.parseFile(path, osInterface); err != nil {
		return nil, err
	}

	environment := environToMap(osInterface.Environ())
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	}); err != nil {
		return nil, fmt.Errorf("error parsing environment variables: %w", err)
	}
	cfg.applyVerifySSLEnv(environment)
	cfg.trimBrowsers()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) parseFile(flagPath string, osInterface config.OSInterface) error {
	path := flagPath
	if envPath := osInterface.Getenv(ConfigPathEnv); envPath != "" {
		if path != "" && path != envPath {
			return fmt.Errorf("conflicting runner config paths: arg=%s env=%s", path, envPath)
		}
		path = envPath
	}

	if path == "" {
		for _, loc := range getConfigLocations() {
			if _, err := osInterface.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return nil
	}

	data, err := osInterface.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading runner config file: %w", err)
	}

	// yaml.v3 replaces sequences but merges into existing maps, so a file
	// listing browsers overrides the default list while extra headers are
	// added on top of the default ones.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing runner config file %s: %w", path, err)
	}

	c.configPath = path
	return nil
}

// ConfigFilePath returns the file the runner config was read from, or "".
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// Browsers returns a copy of the enabled browser list in declaration order.
func (c *Config) Browsers() []Browser {
	return slices.Clone(c.EnabledBrowsers)
}

// Headers returns a copy of the api project's extra headers.
func (c *Config) Headers() map[string]string {
	return maps.Clone(c.Projects.API.Opts.Use.ExtraHTTPHeaders)
}

// TLSInsecure reports whether certificate verification must be skipped for
// the given project.
func (c *Config) TLSInsecure(project RunnerProject) bool {
	return !c.VerifySSL || project.Use.IgnoreHTTPSErrors
}

// trimBrowsers drops the padding a comma separated env list tends to carry.
func (c *Config) trimBrowsers() {
	for i, b := range c.EnabledBrowsers {
		c.EnabledBrowsers[i] = Browser(strings.TrimSpace(string(b)))
	}
}

// applyVerifySSLEnv makes VERIFY_SSL=true from the environment re-enable
// certificate checks for projects whose ignoreHTTPSErrors came from defaults
// or the file. An explicit API_IGNORE_HTTPS_ERRORS still wins.
func (c *Config) applyVerifySSLEnv(environment map[string]string) {
	if _, ok := environment[EnvPrefix+"VERIFY_SSL"]; !ok || !c.VerifySSL {
		return
	}
	if _, ok := environment[EnvPrefix+"API_IGNORE_HTTPS_ERRORS"]; !ok {
		c.Projects.API.Opts.Use.IgnoreHTTPSErrors = false
	}
}

func (c *Config) projects() map[string]Project {
	return map[string]Project{
		ProjectAPI: c.Projects.API,
	}
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}
