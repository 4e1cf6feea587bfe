package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied to values left unset by the configuration document.
const (
	DefaultMaxConcurrentFiles = 5
	DefaultMaxFileSize        = 100000
	DefaultOutputDir          = "."
	DefaultGitLabURL          = "https://gitlab.com"
	DefaultGitLabTimeout      = 30
	DefaultAIBackend          = "ollama"
	DefaultOllamaHost         = "http://localhost:11434"
	DefaultAITimeout          = 120
)

// ErrProjectNotFound is returned by Project for an unknown project id.
var ErrProjectNotFound = errors.New("project not configured")

var validate = validator.New()

// Config is the scanner configuration document.
type Config struct {
	GlobalSettings GlobalSettings      `yaml:"global_settings" json:"global_settings"`
	GitLab         GitLab              `yaml:"gitlab" json:"gitlab"`
	AI             AI                  `yaml:"ai" json:"ai"`
	Projects       map[string]*Project `yaml:"projects" json:"projects" validate:"dive"`
}

// GlobalSettings bound every scan run.
type GlobalSettings struct {
	MaxConcurrentFiles int    `yaml:"max_concurrent_files" json:"max_concurrent_files" validate:"gte=1"`
	MaxFileSize        int    `yaml:"max_file_size" json:"max_file_size" validate:"gte=1"`
	OutputDir          string `yaml:"output_dir" json:"output_dir"`
}

// GitLab holds the repository connection. Timeout is in seconds.
type GitLab struct {
	URL     string `yaml:"url" json:"url" validate:"omitempty,url"`
	Token   string `yaml:"token" json:"token"`
	Timeout int    `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

// TimeoutDuration returns Timeout as a duration.
func (g GitLab) TimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// AI holds the language model backend connection. Timeout is in seconds.
type AI struct {
	Backend           string  `yaml:"backend" json:"backend" validate:"omitempty,oneof=ollama openai"`
	Host              string  `yaml:"host" json:"host"`
	APIBase           string  `yaml:"api_base" json:"api_base"`
	APIKey            string  `yaml:"api_key" json:"api_key"`
	Timeout           int     `yaml:"timeout" json:"timeout" validate:"gte=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
}

// TimeoutDuration returns Timeout as a duration.
func (a AI) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// Project is the per-project scan configuration.
type Project struct {
	VersionBasePath string          `yaml:"version_base_path" json:"version_base_path" validate:"required"`
	DBTypePatterns  DialectPatterns `yaml:"db_type_patterns" json:"db_type_patterns"`
	AIAnalysis      AIAnalysis      `yaml:"ai_analysis" json:"ai_analysis"`
}

// AIAnalysis holds per-project analysis settings. Nil pointers and zero
// values mean "not set" and fall through to the built-in defaults.
type AIAnalysis struct {
	Model              string   `yaml:"model" json:"model"`
	Temperature        *float64 `yaml:"temperature" json:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP               *float64 `yaml:"top_p" json:"top_p" validate:"omitempty,gte=0,lte=1"`
	MaxTokens          int      `yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	EnableThinking     *bool    `yaml:"enable_thinking" json:"enable_thinking"`
	FocusAreas         []string `yaml:"focus_areas" json:"focus_areas"`
	AnalysisDepth      string   `yaml:"analysis_depth" json:"analysis_depth" validate:"omitempty,oneof=quick standard deep"`
	CustomInstructions string   `yaml:"custom_instructions" json:"custom_instructions"`
}

// DialectPattern maps a dialect tag to path globs.
type DialectPattern struct {
	Dialect  string
	Patterns []string
}

// DialectPatterns keeps the document order of db_type_patterns, which
// decides which dialect wins when several patterns match.
type DialectPatterns []DialectPattern

// UnmarshalYAML decodes a mapping of dialect to a glob list (or a single glob).
func (p *DialectPatterns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("db_type_patterns: expected a mapping at line %d", node.Line)
	}
	out := make(DialectPatterns, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var globs []string
		switch {
		case value.ShortTag() == "!!null":
		case value.Kind == yaml.ScalarNode:
			globs = []string{value.Value}
		default:
			if err := value.Decode(&globs); err != nil {
				return errors.Wrapf(err, "db_type_patterns.%s", key.Value)
			}
		}
		out = append(out, DialectPattern{Dialect: key.Value, Patterns: globs})
	}
	*p = out
	return nil
}

// UnmarshalJSON reuses the YAML decoder, JSON being a subset of YAML.
func (p *DialectPatterns) UnmarshalJSON(data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		return p.UnmarshalYAML(node.Content[0])
	}
	return p.UnmarshalYAML(&node)
}

// MarshalYAML writes the patterns back as an ordered mapping.
func (p DialectPatterns) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, dp := range p {
		value := &yaml.Node{}
		if err := value.Encode(dp.Patterns); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: dp.Dialect}, value)
	}
	return node, nil
}

// LoadFromFile loads configuration from a file
func LoadFromFile(filename string) (*Config, error) {
	slog.Debug("Loading config from file", "filename", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", filename)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %s", filename)
	}

	slog.Debug("Loaded config", "projects_count", len(config.Projects))
	return config, nil
}

// Parse decodes a YAML or JSON document, applies defaults and validates it.
// Keys that match no setting are rejected.
func Parse(data []byte) (*Config, error) {
	var config Config

	// Try YAML first, then JSON
	if err := decodeYAML(data, &config); err != nil {
		slog.Debug("YAML unmarshal failed", "error", err)
		config = Config{}
		if jsonErr := decodeJSON(data, &config); jsonErr != nil {
			slog.Debug("JSON unmarshal failed", "error", jsonErr)
			return nil, errors.Wrap(err, "config is neither valid YAML nor JSON")
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeYAML(data []byte, config *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func decodeJSON(data []byte, config *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(config)
}

// DefaultConfig returns a configuration with every default applied and no
// projects.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.GlobalSettings.MaxConcurrentFiles == 0 {
		c.GlobalSettings.MaxConcurrentFiles = DefaultMaxConcurrentFiles
	}
	if c.GlobalSettings.MaxFileSize == 0 {
		c.GlobalSettings.MaxFileSize = DefaultMaxFileSize
	}
	if c.GlobalSettings.OutputDir == "" {
		c.GlobalSettings.OutputDir = DefaultOutputDir
	}
	if c.GitLab.URL == "" {
		c.GitLab.URL = DefaultGitLabURL
	}
	if c.GitLab.Timeout == 0 {
		c.GitLab.Timeout = DefaultGitLabTimeout
	}
	if c.AI.Backend == "" {
		c.AI.Backend = DefaultAIBackend
	}
	if c.AI.Host == "" {
		c.AI.Host = DefaultOllamaHost
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = DefaultAITimeout
	}
	if c.Projects == nil {
		c.Projects = make(map[string]*Project)
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// Project returns the configuration of project id.
func (c *Config) Project(id string) (*Project, error) {
	p, ok := c.Projects[id]
	if !ok || p == nil {
		return nil, errors.Wrapf(ErrProjectNotFound, "project %s", id)
	}
	return p, nil
}
