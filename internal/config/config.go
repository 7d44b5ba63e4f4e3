package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/commlab/internal/protocol"
	"github.com/san-kum/commlab/internal/synth"
)

const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"

	DefaultEndpoint  = "http://localhost:3000/chat"
	DefaultModel     = "gemini-2.5-pro"
	DefaultAPIKeyEnv = "GEMINI_API_KEY"
	DefaultTimeout   = 60 * time.Second
	DefaultAddr      = ":3000"
	DefaultTheme     = "cyberpunk"
	DefaultHeight    = 12
	DefaultWidth     = 72
	DefaultLogLevel  = "info"

	dirName = ".commlab"
)

type Config struct {
	Remote RemoteConfig `yaml:"remote"`
	Prompt PromptConfig `yaml:"prompt"`
	Sim    SimConfig    `yaml:"sim"`
	UI     UIConfig     `yaml:"ui"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type RemoteConfig struct {
	Provider  string        `yaml:"provider" validate:"required,oneof=http gemini"`
	Endpoint  string        `yaml:"endpoint" validate:"omitempty,url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

type PromptConfig struct {
	Language  string `yaml:"language"`
	SplitMode string `yaml:"split_mode"`
}

type SimConfig struct {
	Duration float64      `yaml:"duration" validate:"gt=0"`
	Samples  int          `yaml:"samples" validate:"gte=2"`
	Offset   float64      `yaml:"offset"`
	Params   ParamsConfig `yaml:"params"`
}

type ParamsConfig struct {
	Carrier RangeConfig `yaml:"carrier"`
	Mod     RangeConfig `yaml:"mod"`
	Index   RangeConfig `yaml:"index"`
}

type RangeConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Current float64 `yaml:"current"`
}

type UIConfig struct {
	Theme  string `yaml:"theme"`
	Height int    `yaml:"height" validate:"gte=0"`
	Width  int    `yaml:"width" validate:"gte=0"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	defaults := protocol.AMParameters()
	ranges := make([]RangeConfig, len(defaults))
	for i, p := range defaults {
		ranges[i] = RangeConfig{Min: p.Min, Max: p.Max, Step: p.Step, Current: p.Current}
	}

	return &Config{
		Remote: RemoteConfig{
			Provider:  ProviderHTTP,
			Endpoint:  DefaultEndpoint,
			Model:     DefaultModel,
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   DefaultTimeout,
		},
		Prompt: PromptConfig{
			Language:  protocol.DefaultLanguage,
			SplitMode: protocol.SplitFirst.String(),
		},
		Sim: SimConfig{
			Duration: synth.DefaultDuration,
			Samples:  synth.DefaultSamples,
			Offset:   synth.DefaultOffset,
			Params:   ParamsConfig{Carrier: ranges[0], Mod: ranges[1], Index: ranges[2]},
		},
		UI: UIConfig{
			Theme:  DefaultTheme,
			Height: DefaultHeight,
			Width:  DefaultWidth,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Dir is ~/.commlab, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

func DefaultPath() string    { return filepath.Join(Dir(), "config.yaml") }
func DefaultLogPath() string { return filepath.Join(Dir(), "commlab.log") }

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads path, returning defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: rule '%s' (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Remote.Provider == ProviderHTTP && c.Remote.Endpoint == "" {
		return errors.New("remote.endpoint is required for the http provider")
	}
	if _, err := protocol.ParseSplitMode(c.Prompt.SplitMode); err != nil {
		return err
	}
	if err := c.SynthConfig().Validate(); err != nil {
		return err
	}
	d := protocol.Descriptor{IsSimulatable: true, Scheme: protocol.SchemeAM, Parameters: c.Parameters()}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("sim.params: %w", err)
	}
	for _, p := range d.Parameters {
		if p.Current < p.Min || p.Current > p.Max {
			return fmt.Errorf("sim.params: %s current %g outside [%g, %g]", p.Name, p.Current, p.Min, p.Max)
		}
	}
	return nil
}

// APIKey reads the key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Remote.APIKeyEnv)
}

func (c *Config) SynthConfig() synth.Config {
	return synth.Config{Duration: c.Sim.Duration, Samples: c.Sim.Samples, Offset: c.Sim.Offset}
}

// Parameters returns the slider schema, with labels and units from the
// built-in AM schema.
func (c *Config) Parameters() []protocol.Parameter {
	params := protocol.AMParameters()
	for i, r := range []RangeConfig{c.Sim.Params.Carrier, c.Sim.Params.Mod, c.Sim.Params.Index} {
		params[i].Min, params[i].Max, params[i].Step, params[i].Current = r.Min, r.Max, r.Step, r.Current
	}
	return params
}

// ApplyParams sets the current slider values.
func (c *Config) ApplyParams(p synth.Params) {
	c.Sim.Params.Carrier.Current = p.CarrierFreq
	c.Sim.Params.Mod.Current = p.ModFreq
	c.Sim.Params.Index.Current = p.ModIndex
}

func (c *Config) SynthParams() synth.Params {
	return synth.Params{
		CarrierFreq: c.Sim.Params.Carrier.Current,
		ModFreq:     c.Sim.Params.Mod.Current,
		ModIndex:    c.Sim.Params.Index.Current,
	}
}

func (c *Config) Codec() (protocol.Codec, error) {
	mode, err := protocol.ParseSplitMode(c.Prompt.SplitMode)
	if err != nil {
		return protocol.Codec{}, err
	}
	lang := c.Prompt.Language
	if lang == "" {
		lang = protocol.DefaultLanguage
	}
	return protocol.Codec{Language: lang, Mode: mode}, nil
}
