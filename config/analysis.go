package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"borrow_analytics/analysis"
	"borrow_analytics/catalog"
	"borrow_analytics/engine"
	"borrow_analytics/models"
	"borrow_analytics/normalize"

	"gopkg.in/yaml.v3"
)

// Analysis is the YAML analysis settings file.
type Analysis struct {
	Timezone          string                       `yaml:"timezone"`
	InventoryCategory string                       `yaml:"inventory_category"`
	CurrentPeriods    []PeriodSpec                 `yaml:"current_periods"`
	Categories        catalog.Mapping              `yaml:"categories"`
	CategoriesFile    string                       `yaml:"categories_file"`
	Columns           map[string]normalize.Columns `yaml:"columns"`
}

// PeriodSpec is a declared current period. A date-only end covers that
// whole day.
type PeriodSpec struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LoadAnalysis reads path; an empty path yields the defaults.
func LoadAnalysis(path string) (Analysis, error) {
	var a Analysis
	if path == "" {
		return a, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read analysis config: %w", err)
	}
	if err := yaml.Unmarshal(b, &a); err != nil {
		return a, fmt.Errorf("parse analysis config %s: %w", path, err)
	}
	if a.CategoriesFile != "" && !filepath.IsAbs(a.CategoriesFile) {
		a.CategoriesFile = filepath.Join(filepath.Dir(path), a.CategoriesFile)
	}
	return a, nil
}

// EngineConfig resolves the settings into what engine.New needs.
func (a Analysis) EngineConfig() (engine.Config, error) {
	var cfg engine.Config

	loc := time.Local
	if a.Timezone != "" {
		l, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return cfg, fmt.Errorf("timezone %q: %w", a.Timezone, err)
		}
		loc = l
	}
	cfg.Location = loc
	cfg.InventoryCategory = a.InventoryCategory

	mapping := a.Categories
	if a.CategoriesFile != "" {
		m, err := catalog.LoadMapping(a.CategoriesFile)
		if err != nil {
			return cfg, err
		}
		mapping = mergeMapping(m, a.Categories)
	}
	cfg.Mapping = mapping

	for i, p := range a.CurrentPeriods {
		start, err := normalize.ParseTimestamp(p.Start, loc)
		if err != nil {
			return cfg, fmt.Errorf("current_periods[%d].start: %w", i, err)
		}
		end, err := normalize.ParseTimestamp(p.End, loc)
		if err != nil {
			return cfg, fmt.Errorf("current_periods[%d].end: %w", i, err)
		}
		if !strings.Contains(p.End, ":") {
			end = end.AddDate(0, 0, 1)
		}
		if !end.After(start) {
			return cfg, fmt.Errorf("current_periods[%d]: end %s is not after start %s", i, p.End, p.Start)
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("period-%d", i+1)
		}
		cfg.Periods = append(cfg.Periods, analysis.Period{Name: name, Start: start, End: end})
	}

	if len(a.Columns) > 0 {
		cfg.Columns = make(map[models.Source]normalize.Columns, len(a.Columns))
		for k, cols := range a.Columns {
			src, ok := models.ParseSource(k)
			if !ok {
				return cfg, fmt.Errorf("columns: unknown source %q", k)
			}
			cfg.Columns[src] = cols
		}
	}
	return cfg, nil
}

// inline entries override the mapping file
func mergeMapping(base, over catalog.Mapping) catalog.Mapping {
	out := catalog.Mapping{Codes: map[string]string{}, Names: map[string]string{}}
	for _, m := range []catalog.Mapping{base, over} {
		for k, v := range m.Codes {
			out.Codes[k] = v
		}
		for k, v := range m.Names {
			out.Names[k] = v
		}
	}
	return out
}
