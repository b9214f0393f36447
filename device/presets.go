package device

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// Preset is a named device size, the way real disk geometries are looked up
// by slug elsewhere in this ecosystem; here the only geometry that matters
// is the total block count.
type Preset struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	TotalBlocks uint32 `csv:"total_blocks"`
	Notes       string `csv:"notes"`
}

//go:embed presets.csv
var rawPresetsCSV string

var presetsBySlug map[string]Preset

func init() {
	presetsBySlug = make(map[string]Preset)
	reader := strings.NewReader(rawPresetsCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Preset) error {
		if _, exists := presetsBySlug[row.Slug]; exists {
			return fmt.Errorf("duplicate preset slug %q", row.Slug)
		}
		presetsBySlug[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// LookupPreset returns the named device-size preset, or an error if no
// preset with that slug is known.
func LookupPreset(slug string) (Preset, error) {
	preset, ok := presetsBySlug[slug]
	if !ok {
		return Preset{}, fmt.Errorf("no predefined device preset named %q", slug)
	}
	return preset, nil
}

// Presets returns every known preset, in no particular order.
func Presets() []Preset {
	all := make([]Preset, 0, len(presetsBySlug))
	for _, preset := range presetsBySlug {
		all = append(all, preset)
	}
	return all
}
