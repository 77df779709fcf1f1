// Package catalog loads the domain, item and learning path catalog from YAML
// seed files into the stores.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
)

// moduleNamespace derives stable IDs for paths and modules declared without one.
var moduleNamespace = uuid.MustParse("6f1c0c55-5d55-4f8e-9a39-5b0f3b5e1a7d")

// ErrInvalidCatalog wraps every problem found while parsing a seed file.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the parsed content of a seed file.
type Catalog struct {
	Domains []domain.Domain
	Items   []domain.Item
	Paths   []domain.LearningPath
}

type yamlCatalog struct {
	Domains []yamlDomain `yaml:"domains"`
	Items   []yamlItem   `yaml:"items"`
	Paths   []yamlPath   `yaml:"paths"`
}

type yamlDomain struct {
	Code     string  `yaml:"code"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Weight   float64 `yaml:"weight"`
	Critical bool    `yaml:"critical"`
	Active   *bool   `yaml:"active"`
}

type yamlItem struct {
	ID          string              `yaml:"id"`
	Domain      string              `yaml:"domain"`
	Stem        string              `yaml:"stem"`
	Answer      string              `yaml:"answer"`
	Params      *irt.ItemParams     `yaml:"params"`
	Calibration *domain.Calibration `yaml:"calibration"`
}

type yamlPath struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	MinDifficulty  float64      `yaml:"min_difficulty"`
	MaxDifficulty  float64      `yaml:"max_difficulty"`
	Domains        []string     `yaml:"domains"`
	EstimatedHours *float64     `yaml:"estimated_hours"`
	Modules        []yamlModule `yaml:"modules"`
}

type yamlModule struct {
	ID             string  `yaml:"id"`
	Title          string  `yaml:"title"`
	Domain         string  `yaml:"domain"`
	Difficulty     float64 `yaml:"difficulty"`
	EstimatedHours float64 `yaml:"estimated_hours"`
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied seed file
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a seed document. Unknown keys are rejected. When the document
// declares domains, every item and path must refer to one of them; otherwise
// references are left for the database to check.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlCatalog
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	cat := &Catalog{}
	codes := make(map[string]bool, len(doc.Domains))
	for i, yd := range doc.Domains {
		d := domain.Domain{
			Code:             strings.TrimSpace(yd.Code),
			Name:             strings.TrimSpace(yd.Name),
			Category:         domain.DomainCategory(yd.Category),
			WeightPercentage: yd.Weight,
			IsCritical:       yd.Critical,
			Active:           yd.Active == nil || *yd.Active,
		}
		if d.Name == "" {
			d.Name = d.Code
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%w: domains[%d]: %v", ErrInvalidCatalog, i, err)
		}
		if codes[d.Code] {
			return nil, fmt.Errorf("%w: domains[%d]: duplicate code %q", ErrInvalidCatalog, i, d.Code)
		}
		codes[d.Code] = true
		cat.Domains = append(cat.Domains, d)
	}
	known := func(code string) bool { return len(codes) == 0 || codes[code] }

	itemIDs := make(map[uuid.UUID]bool, len(doc.Items))
	for i, yi := range doc.Items {
		id, err := uuid.Parse(strings.TrimSpace(yi.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: items[%d]: id %q is not a uuid", ErrInvalidCatalog, i, yi.ID)
		}
		item := domain.Item{
			ID:            id,
			DomainCode:    strings.TrimSpace(yi.Domain),
			Stem:          strings.TrimSpace(yi.Stem),
			CorrectAnswer: strings.TrimSpace(yi.Answer),
			Params:        yi.Params,
			Calibration:   yi.Calibration,
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: items[%d]: %v", ErrInvalidCatalog, i, err)
		}
		if !known(item.DomainCode) {
			return nil, fmt.Errorf("%w: items[%d]: unknown domain %q", ErrInvalidCatalog, i, item.DomainCode)
		}
		if itemIDs[id] {
			return nil, fmt.Errorf("%w: items[%d]: duplicate id %s", ErrInvalidCatalog, i, id)
		}
		itemIDs[id] = true
		cat.Items = append(cat.Items, item)
	}

	for i, yp := range doc.Paths {
		path, err := convertPath(yp, known)
		if err != nil {
			return nil, fmt.Errorf("%w: paths[%d]: %v", ErrInvalidCatalog, i, err)
		}
		cat.Paths = append(cat.Paths, path)
	}
	return cat, nil
}

func convertPath(yp yamlPath, known func(string) bool) (domain.LearningPath, error) {
	name := strings.TrimSpace(yp.Name)
	id, err := parseOrDerive(yp.ID, "path:"+name)
	if err != nil {
		return domain.LearningPath{}, err
	}
	path := domain.LearningPath{
		ID:            id,
		Name:          name,
		MinDifficulty: yp.MinDifficulty,
		MaxDifficulty: yp.MaxDifficulty,
		Modules:       make([]domain.LearningModule, 0, len(yp.Modules)),
	}
	for _, code := range yp.Domains {
		code = strings.TrimSpace(code)
		if !known(code) {
			return path, fmt.Errorf("unknown domain %q", code)
		}
		path.Domains = append(path.Domains, code)
	}

	var hours float64
	for j, ym := range yp.Modules {
		title := strings.TrimSpace(ym.Title)
		mid, err := parseOrDerive(ym.ID, "module:"+name+":"+title)
		if err != nil {
			return path, fmt.Errorf("modules[%d]: %v", j, err)
		}
		code := strings.TrimSpace(ym.Domain)
		if code == "" && len(path.Domains) == 1 {
			code = path.Domains[0]
		}
		if !path.Covers(code) {
			return path, fmt.Errorf("modules[%d]: domain %q is not covered by the path", j, code)
		}
		path.Modules = append(path.Modules, domain.LearningModule{
			ID:             mid,
			Title:          title,
			DomainCode:     code,
			Difficulty:     ym.Difficulty,
			EstimatedHours: ym.EstimatedHours,
			Position:       j,
		})
		hours += ym.EstimatedHours
	}
	path.EstimatedHours = hours
	if yp.EstimatedHours != nil {
		path.EstimatedHours = *yp.EstimatedHours
	}
	return path, path.Validate()
}

func parseOrDerive(raw, key string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.NewSHA1(moduleNamespace, []byte(key)), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q is not a uuid", raw)
	}
	return id, nil
}
