package services

import (
	"os"

	contextutils "telugulearn/internal/utils"

	"gopkg.in/yaml.v3"
)

// CurriculumSeed is the top level of a curriculum seed file
type CurriculumSeed struct {
	Courses []CourseSeed `yaml:"courses"`
}

// LoadCatalogSeed reads a badge and achievement catalog from a YAML file
func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	var seed CatalogSeed
	if err := decodeSeedFile(path, &seed); err != nil {
		return nil, err
	}
	if len(seed.Badges) == 0 && len(seed.Achievements) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s defines no badges or achievements", path)
	}
	return &seed, nil
}

// LoadCurriculumSeed reads courses and chapters from a YAML file
func LoadCurriculumSeed(path string) (*CurriculumSeed, error) {
	var seed CurriculumSeed
	if err := decodeSeedFile(path, &seed); err != nil {
		return nil, err
	}
	if len(seed.Courses) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "%s defines no courses", path)
	}
	return &seed, nil
}

func decodeSeedFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to read seed file %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse seed file %s: %v", path, err)
	}
	return nil
}
