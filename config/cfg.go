package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	BookConfig struct {
		RootDocument string   `yaml:"root_document" validate:"required,endswith=.xml"`
		SourceDir    string   `yaml:"source_dir" validate:"required"`
		SummaryFile  string   `yaml:"summary_file" validate:"required,endswith=.md"`
		Chapters     []string `yaml:"chapters" validate:"required,dive,required,endswith=.xml"`
		Ignored      []string `yaml:"ignored" validate:"dive,required"`
	}

	ConversionConfig struct {
		WrapWidth int               `yaml:"wrap_width" validate:"min=20"`
		Workers   int               `yaml:"workers" validate:"min=0"`
		OnError   ErrorPolicy       `yaml:"on_error" validate:"gte=0,lte=1"`
		Verify    bool              `yaml:"verify"`
		Entities  map[string]string `yaml:"entities,omitempty" validate:"dive,keys,required,endkeys,required"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Book       BookConfig       `yaml:"book"`
		Conversion ConversionConfig `yaml:"conversion"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

// checkBook makes sure every document has a single role.
func checkBook(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	book := cfg.Book
	if slices.Contains(book.Chapters, book.RootDocument) || slices.Contains(book.Ignored, book.RootDocument) {
		sl.ReportError(book.RootDocument, "RootDocument", "root_document", "unique_role", "")
	}
	seen := make(map[string]bool, len(book.Chapters))
	for _, name := range book.Chapters {
		if seen[name] || slices.Contains(book.Ignored, name) {
			sl.ReportError(name, "Chapters", "chapters", "unique_role", name)
		}
		seen[name] = true
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkBook)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

// Role is what driver does with a source document.
type Role int

const (
	RoleUnknown Role = iota
	RoleChapter
	RoleSummary
	RoleIgnored
)

func (r Role) String() string {
	switch r {
	case RoleChapter:
		return "chapter"
	case RoleSummary:
		return "summary"
	case RoleIgnored:
		return "ignored"
	}
	return "unknown"
}

// RoleOf classifies document by its base file name.
func (b *BookConfig) RoleOf(name string) Role {
	switch {
	case name == b.RootDocument:
		return RoleSummary
	case slices.Contains(b.Chapters, name):
		return RoleChapter
	case slices.Contains(b.Ignored, name):
		return RoleIgnored
	}
	return RoleUnknown
}
