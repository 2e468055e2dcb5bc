// Package loader turns profile and startup files into validated records.
// Every problem found in a file is reported at once through
// outreach.ValidationError.
package loader

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/textnorm"
)

//go:embed profile.schema.json
var profileSchema []byte

// LoadProfile reads a JSON or Markdown profile depending on the file extension.
func LoadProfile(path string) (*outreach.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseProfileJSON(data)
	case ".md", ".markdown":
		return ParseProfileMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported profile format %q (use .json or .md)", filepath.Ext(path))
	}
}

// ParseProfileJSON validates data against the profile schema and decodes it.
// Skills and tech stacks may be given as arrays or as comma separated strings.
func ParseProfileJSON(data []byte) (*outreach.Profile, error) {
	verr := &outreach.ValidationError{Source: "profile"}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(profileSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		verr.Add("profile", "", fmt.Sprintf("is not a valid JSON document: %v", err))
		return nil, verr
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "(root)" {
				field = ""
			}
			verr.Add("profile", field, desc.Description())
		}
		return nil, verr
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}

	var profile outreach.Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       listHook,
		Result:           &profile,
	})
	if err != nil {
		return nil, fmt.Errorf("building profile decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		verr.Add("profile", "", err.Error())
		return nil, verr
	}

	return finishProfile(&profile, verr)
}

// listHook turns a delimiter separated string into a string slice.
func listHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
		return data, nil
	}
	return textnorm.SplitList(data.(string)), nil
}

func finishProfile(profile *outreach.Profile, verr *outreach.ValidationError) (*outreach.Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Email = strings.TrimSpace(profile.Email)
	profile.Skills = trimAll(profile.Skills)
	for i := range profile.Projects {
		profile.Projects[i].Name = strings.TrimSpace(profile.Projects[i].Name)
		profile.Projects[i].TechStack = trimAll(profile.Projects[i].TechStack)
		profile.Projects[i].Outcomes = trimAll(profile.Projects[i].Outcomes)
	}

	seen := make(map[string]struct{}, len(profile.Projects))
	for _, project := range profile.Projects {
		key := textnorm.Fold(project.Name)
		if _, dup := seen[key]; dup && key != "" {
			verr.Add("profile", "projects", fmt.Sprintf("duplicate project name %q", project.Name))
		}
		seen[key] = struct{}{}
	}

	checkRecord(verr, "profile", profile)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return profile, nil
}

func trimAll(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
