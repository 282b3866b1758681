// Package config loads workspace settings: content collections, logging and formatting defaults.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileNames are the config files looked for in a workspace root, in order.
var FileNames = []string{"astrols.yaml", "astrols.yml", "astrols.hcl", "astrols.json"}

// File is the on-disk and initialization-options shape of the settings.
type File struct {
	LogLevel    string            `json:"log_level,omitempty" yaml:"log_level,omitempty" hcl:"log_level,optional"`
	Collections []*Collection     `json:"collections,omitempty" yaml:"collections,omitempty" hcl:"collection,block"`
	Entries     map[string]string `json:"entries,omitempty" yaml:"entries,omitempty" hcl:"entries,optional"`
	Format      *FormatBlock      `json:"format,omitempty" yaml:"format,omitempty" hcl:"format,block"`
}

// Collection is a content collection. Files under Folder, or listed in the entries, belong to it.
type Collection struct {
	Name      string `json:"name" yaml:"name" hcl:"name,label"`
	Folder    string `json:"folder,omitempty" yaml:"folder,omitempty" hcl:"folder,optional"`
	HasSchema bool   `json:"has_schema,omitempty" yaml:"has_schema,omitempty" hcl:"has_schema,optional"`
}

type FormatBlock struct {
	TabSize                *int  `json:"tab_size,omitempty" yaml:"tab_size,omitempty" hcl:"tab_size,optional"`
	InsertSpaces           *bool `json:"insert_spaces,omitempty" yaml:"insert_spaces,omitempty" hcl:"insert_spaces,optional"`
	TrimTrailingWhitespace *bool `json:"trim_trailing_whitespace,omitempty" yaml:"trim_trailing_whitespace,omitempty" hcl:"trim_trailing_whitespace,optional"`
	InsertFinalNewline     *bool `json:"insert_final_newline,omitempty" yaml:"insert_final_newline,omitempty" hcl:"insert_final_newline,optional"`
}

// Find returns the first config file present in root.
func Find(fs afero.Fs, root string) (string, bool) {
	for _, name := range FileNames {
		p := path.Join(root, name)
		if ok, _ := afero.Exists(fs, p); ok {
			return p, true
		}
	}
	return "", false
}

// LoadFile parses the config file at p. HCL files can refer to the workspace root as `root`.
func LoadFile(fs afero.Fs, p, root string) (*File, error) {
	data, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	case ".hcl":
		return ParseHCL(data, p, root)
	default:
		return nil, errors.Errorf("unsupported config format %q", path.Ext(p))
	}
}

func ParseYAML(data []byte) (*File, error) {
	var cfg File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// ParseJSON also reads client initialization options, which share the file's shape.
func ParseJSON(data []byte) (*File, error) {
	var cfg File
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return &cfg, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}

func ParseHCL(data []byte, filename, root string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root": cty.StringVal(root),
		},
	}

	var cfg File
	diags = gohcl.DecodeBody(hclFile.Body, ctx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}
