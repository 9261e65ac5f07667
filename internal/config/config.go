// Package config holds the declarative build configuration for bndbuild.
// A configuration file declares named bundles, each with its classpath, root
// directories, manifest attributes (lower-precedence layer) and explicit
// bundle instructions (higher-precedence layer).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
)

// Root is the top-level configuration structure.
type Root struct {
	Bundles map[string]*Bundle `json:"bundles,omitempty"`
	Watch   *Watch             `json:"watch,omitempty"`
}

// Watch configures the periodic rebuild loop.
type Watch struct {
	// Interval between rebuilds of one bundle. Defaults to 30s.
	Interval Duration `json:"interval,omitempty"`

	// Addr is the listen address for the metrics endpoint. Empty disables it.
	Addr string `json:"addr,omitempty"`

	// Workers is the number of concurrent bundle builds. Defaults to 1.
	Workers int `json:"workers,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Bundle configures one archive build.
type Bundle struct {
	Name string `json:"-"`

	// Output is the archive path: directory, file name and extension are
	// derived from it. Defaults to <name>.jar in the working directory.
	Output string `json:"output,omitempty"`

	// Classpath entries are jars or class directories used for reference
	// resolution only.
	Classpath []string `json:"classpath,omitempty"`

	Classes   []string `json:"classes,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Sources   []string `json:"sources,omitempty"`

	IncludedFiles []string `json:"included_files,omitempty"`
	ExcludedFiles []string `json:"excluded_files,omitempty"`

	// Manifest is the conventional archive-manifest attribute map.
	Manifest map[string]string `json:"manifest,omitempty"`

	// Instructions is the explicit-instruction layer. A value is either a
	// scalar or a fragment list; list entries accumulate in order and are
	// joined with "," when the engine consumes them.
	Instructions map[string]Value `json:"instructions,omitempty"`

	// Options is decoded into Options with weak typing, so "true"/"on"/1 all
	// work the way truthy directive values do.
	Options map[string]any `json:"options,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Options are the per-bundle mode flags and watch settings.
type Options struct {
	EmbedSources bool          `mapstructure:"embed_sources"`
	Trace        bool          `mapstructure:"trace"`
	Interval     time.Duration `mapstructure:"interval"`
}

// DecodeOptions decodes the raw options block.
func (b *Bundle) DecodeOptions() (Options, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(b.Options); err != nil {
		return opts, fmt.Errorf("bundle %q options: %w", b.Name, err)
	}
	return opts, nil
}

// Value is an instruction value: a scalar or an ordered fragment sequence.
type Value []string

// UnmarshalYAML accepts either a scalar or a sequence. Scalars keep their
// literal YAML text, so `Bundle-Version: 1.0` stays "1.0" and is never
// re-rendered through a float.
func (v *Value) UnmarshalYAML(bs []byte) error {
	var items []scalar
	if err := yaml.Unmarshal(bs, &items); err == nil {
		out := make(Value, 0, len(items))
		for _, item := range items {
			out = append(out, string(item))
		}
		*v = out
		return nil
	}

	s, err := scalarText(string(bs))
	if err != nil {
		return err
	}
	*v = Value{s}
	return nil
}

// scalar captures the literal text of one YAML scalar node.
type scalar string

func (s *scalar) UnmarshalYAML(bs []byte) error {
	text, err := scalarText(string(bs))
	if err != nil {
		return err
	}
	*s = scalar(text)
	return nil
}

// scalarText resolves a raw scalar node to its string content. Quoted and
// block scalars decode normally; plain scalars keep their source text, which
// is what distinguishes the version "1.0" from the float 1.0.
func scalarText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	switch {
	case text == "", text == "null", text == "~":
		// An instruction with no payload is a legal boolean-like directive.
		return "", nil
	case strings.HasPrefix(text, `"`), strings.HasPrefix(text, "'"),
		strings.HasPrefix(text, "|"), strings.HasPrefix(text, ">"):
		var s string
		if err := yaml.Unmarshal([]byte(text), &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return text, nil
}

// UnmarshalYAML injects the bundle names from the mapping keys, so bundles
// can be declared as a named map.
func (r *Root) UnmarshalYAML(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalYAML by type aliasing
	var raw rawRoot

	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	*r = Root(raw)
	for name, b := range r.Bundles {
		if b == nil {
			b = &Bundle{}
			r.Bundles[name] = b
		}
		b.Name = name
	}
	return nil
}

// Parse validates bs against the configuration schema and unmarshals it.
func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}
	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Duration wraps time.Duration for YAML string values like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(time.Duration(d).String())
}
