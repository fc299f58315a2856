package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"
)

// profileOverridesFile is the on-disk shape of a profile policy file:
//
//	profiles:
//	  centos-7: rhel7
//	  fedora: rhel9
type profileOverridesFile struct {
	Profiles map[string]string `yaml:"profiles"`
}

// LoadProfileOverrides reads a profile policy YAML file. An empty path
// yields no overrides.
func LoadProfileOverrides(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read profile policy file").
			WithCause(err)
	}
	var parsed profileOverridesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("profile policy file is not valid YAML").
			WithCause(err)
	}
	if parsed.Profiles == nil {
		parsed.Profiles = map[string]string{}
	}
	return parsed.Profiles, nil
}
