// Package config loads the soyuz configuration file.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to accept strings such as “24h” in YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return xerrors.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

type Series struct {
	Name string `yaml:"name"`
	// Status is one of development, frozen, current, supported, obsolete.
	Status        string   `yaml:"status"`
	Architectures []string `yaml:"architectures"`
	// NominatedArchIndep is the architecture on which arch-independent
	// (Architecture: all) builds happen.
	NominatedArchIndep string `yaml:"nominated_arch_indep"`
}

type Archive struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
	// Purpose is one of primary, partner, copy, ppa.
	Purpose            string `yaml:"purpose"`
	Private            bool   `yaml:"private"`
	Virtualized        bool   `yaml:"virtualized"`
	RelativeBuildScore int    `yaml:"relative_build_score"`
	// Root overrides the directory into which the archive is published.
	Root string `yaml:"root"`
}

type Builder struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"` // host:port of the builder gRPC service
	Processor   string `yaml:"processor"`
	Virtualized bool   `yaml:"virtualized"`
	Manual      bool   `yaml:"manual"`
}

type Publisher struct {
	Distribution string `yaml:"distribution"`
	Origin       string `yaml:"origin"`
	Label        string `yaml:"label"`
	// SigningKey is the path to an armored OpenPGP secret key. Release files
	// are left unsigned if empty.
	SigningKey      string   `yaml:"signing_key"`
	StayOfExecution Duration `yaml:"stay_of_execution"`
	// PPAExpiry is how long files of removed PPA publications are retained.
	PPAExpiry  Duration `yaml:"ppa_expiry"`
	Components []string `yaml:"components"`
}

type Buildd struct {
	ScanInterval        Duration `yaml:"scan_interval"`
	StatusTimeout       Duration `yaml:"status_timeout"`
	BuilderFailureLimit int      `yaml:"builder_failure_limit"`
	JobFailureLimit     int      `yaml:"job_failure_limit"`
	// ArchiveURL is passed to builders to fetch build dependencies from.
	ArchiveURL string `yaml:"archive_url"`
}

type Jobs struct {
	Workers      int      `yaml:"workers"`
	LeaseTimeout Duration `yaml:"lease_timeout"`
	MaxRetries   int      `yaml:"max_retries"`
}

type Config struct {
	Series    []Series  `yaml:"series"`
	Archives  []Archive `yaml:"archives"`
	Builders  []Builder `yaml:"builders"`
	Publisher Publisher `yaml:"publisher"`
	Buildd    Buildd    `yaml:"buildd"`
	Jobs      Jobs      `yaml:"jobs"`
}

// Default returns the configuration used for unset fields.
func Default() *Config {
	return &Config{
		Publisher: Publisher{
			Distribution:    "ubuntu",
			Origin:          "Soyuz",
			Label:           "Soyuz",
			StayOfExecution: Duration{24 * time.Hour},
			PPAExpiry:       Duration{30 * 24 * time.Hour},
			Components:      []string{"main", "restricted", "universe", "multiverse"},
		},
		Buildd: Buildd{
			ScanInterval:        Duration{15 * time.Second},
			StatusTimeout:       Duration{30 * time.Second},
			BuilderFailureLimit: 5,
			JobFailureLimit:     3,
		},
		Jobs: Jobs{
			Workers:      4,
			LeaseTimeout: Duration{10 * time.Minute},
			MaxRetries:   3,
		},
	}
}

// Parse decodes b on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, xerrors.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. A missing file results in the
// default configuration.
func Load(path string) (*Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

var validPurposes = map[string]bool{
	"primary": true,
	"partner": true,
	"copy":    true,
	"ppa":     true,
}

var validSeriesStatus = map[string]bool{
	"development": true,
	"frozen":      true,
	"current":     true,
	"supported":   true,
	"obsolete":    true,
}

// Validate checks cross-references and enum values.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, s := range c.Series {
		if s.Name == "" {
			return xerrors.Errorf("series: name must not be empty")
		}
		if seen["series/"+s.Name] {
			return xerrors.Errorf("series %q: defined more than once", s.Name)
		}
		seen["series/"+s.Name] = true
		if !validSeriesStatus[s.Status] {
			return xerrors.Errorf("series %q: invalid status %q", s.Name, s.Status)
		}
		if s.NominatedArchIndep != "" && !contains(s.Architectures, s.NominatedArchIndep) {
			return xerrors.Errorf("series %q: nominated_arch_indep %q is not one of its architectures", s.Name, s.NominatedArchIndep)
		}
	}
	for _, a := range c.Archives {
		key := "archive/" + a.Owner + "/" + a.Name
		if a.Name == "" {
			return xerrors.Errorf("archives: name must not be empty")
		}
		if seen[key] {
			return xerrors.Errorf("archive %q: defined more than once", a.Name)
		}
		seen[key] = true
		if !validPurposes[a.Purpose] {
			return xerrors.Errorf("archive %q: invalid purpose %q", a.Name, a.Purpose)
		}
		if a.Purpose == "ppa" && a.Owner == "" {
			return xerrors.Errorf("archive %q: PPAs must have an owner", a.Name)
		}
	}
	for _, b := range c.Builders {
		if b.Name == "" || b.URL == "" {
			return xerrors.Errorf("builders: name and url are required")
		}
		if seen["builder/"+b.Name] {
			return xerrors.Errorf("builder %q: defined more than once", b.Name)
		}
		seen["builder/"+b.Name] = true
	}
	if c.Buildd.BuilderFailureLimit <= 0 || c.Buildd.JobFailureLimit <= 0 {
		return xerrors.Errorf("buildd: failure limits must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return xerrors.Errorf("jobs: workers must be positive")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
