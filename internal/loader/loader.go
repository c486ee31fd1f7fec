package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
	"scenarioctl/pkg/logging"
)

// Extensions are tried in this order for references without extension.
var Extensions = []string{".yaml", ".yml", ".json"}

// maxParallelLoads bounds the number of scenarios loaded at the same time.
const maxParallelLoads = 8

// For mocking in tests
var osGetwd = os.Getwd

// reserved keys are kept out of item props
var reserved = []string{"$id", "type", "name", "description", "defaults", "overrides"}

// Loader loads and preprocesses scenarios. Item ids are unique per Loader.
type Loader struct {
	registry *plugin.Registry
	seq      atomic.Int64
}

// New creates a loader that selects plugins from registry.
func New(registry *plugin.Registry) *Loader {
	return &Loader{registry: registry}
}

// Load reads the definition referenced by ref. Relative references are
// resolved against the $baseDir of c, or the working directory.
func (l *Loader) Load(ctx context.Context, c api.Context, ref string) (api.Context, api.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	fileName, err := resolve(c.String(api.KeyBaseDir), ref)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("reading scenario %s: %w", fileName, err)
	}

	def, err := decode(data, fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing scenario %s: %w", fileName, err)
	}

	fileContext := c.Clone()
	fileContext[api.KeyFileName] = fileName
	fileContext[api.KeyBaseDir] = filepath.Dir(fileName)
	return fileContext, def, nil
}

// Pre preprocesses def as a child of context c.
func (l *Loader) Pre(ctx context.Context, c api.Context, def api.Definition) (api.Item, error) {
	itemContext := eval.MergeContext(c, def)

	p, err := l.registry.Select(itemContext, def)
	if err != nil {
		return api.Item{}, err
	}
	if _, ok := def["context"]; ok {
		return api.Item{}, api.NewItemError(api.ErrReservedContext, itemContext, def)
	}

	id := int(l.seq.Add(1))
	item := api.Item{
		ID:          id,
		Type:        def.String("type"),
		Name:        def.String("name"),
		Description: def.String("description"),
		Context:     itemContext,
		Props:       props(def),
	}
	if item.Name == "" {
		item.Name = fmt.Sprintf("$%s-%d", item.Type, id)
	}

	if len(p.PreProps) > 0 {
		extracted, err := eval.ExtractProps(eval.OwnerOf(item), def, p.PreProps, itemContext)
		if err != nil {
			return api.Item{}, api.NewItemError(err, itemContext, def)
		}
		maps.Copy(item.Props, extracted)
	}

	if item.Description == "" && p.Describe != nil {
		item.Description = p.Describe(item)
	}

	if p.Pre == nil {
		return item, nil
	}
	return p.Pre(ctx, itemContext, item, l)
}

// LoadScenarios loads and preprocesses every reference in parallel. References
// that fail to load or preprocess are left out; the others keep their order.
func (l *Loader) LoadScenarios(ctx context.Context, c api.Context, refs []string) []api.Item {
	loaded := make([]*api.Item, len(refs))

	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for i, ref := range refs {
		g.Go(func() error {
			fileContext, def, err := l.Load(ctx, c, ref)
			if err != nil {
				logging.Debug("Loader", "Skipping scenario %s: %v", ref, err)
				return nil
			}
			item, err := l.Pre(ctx, fileContext, def)
			if err != nil {
				logging.Debug("Loader", "Skipping scenario %s: %v", ref, err)
				return nil
			}
			loaded[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]api.Item, 0, len(refs))
	for _, item := range loaded {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// Discover expands references that name directories into the scenario files
// directly inside them, in lexical order. Other references are kept as given.
func Discover(refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		info, err := os.Stat(ref)
		if err != nil || !info.IsDir() {
			out = append(out, ref)
			continue
		}
		entries, err := os.ReadDir(ref)
		if err != nil {
			return nil, fmt.Errorf("listing scenarios in %s: %w", ref, err)
		}
		for _, e := range entries {
			if e.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
				continue
			}
			out = append(out, filepath.Join(ref, e.Name()))
		}
	}
	return out, nil
}

func resolve(baseDir, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty scenario reference")
	}
	if !filepath.IsAbs(ref) {
		if baseDir == "" {
			wd, err := osGetwd()
			if err != nil {
				return "", fmt.Errorf("resolving %s: %w", ref, err)
			}
			baseDir = wd
		}
		ref = filepath.Join(baseDir, ref)
	}

	candidates := []string{ref}
	if filepath.Ext(ref) == "" {
		for _, ext := range Extensions {
			candidates = append(candidates, ref+ext)
		}
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("scenario %s: %w", ref, fs.ErrNotExist)
}

func decode(data []byte, fileName string) (api.Definition, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case []any:
		name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		return api.Definition{"type": "suite", "name": name, "items": v}, nil
	default:
		m := api.AsMap(v)
		if m == nil {
			return nil, fmt.Errorf("expected an item definition, got %T", doc)
		}
		return api.Definition(m), nil
	}
}

func props(def api.Definition) api.Definition {
	out := def.Clone()
	for _, key := range reserved {
		delete(out, key)
	}
	return out
}
