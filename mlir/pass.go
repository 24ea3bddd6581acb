package mlir

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass is a transformation over a whole Module. Passes are identified by a
// stable kebab-case name and a one-line description, used for registration
// and discovery; a pass defines no flags and keeps no state across runs.
type Pass interface {
	// Name returns the pass's stable kebab-case identifier, e.g.
	// "tf-mark-ops-for-outside-compilation".
	Name() string

	// Description is a one-line description of what the pass does.
	Description() string

	// Run applies the pass to module, mutating it in place. A non-nil error
	// means the pass failed for the whole module.
	Run(module *Module) error
}

// PassConstructor creates a fresh instance of a pass.
type PassConstructor func() Pass

var registeredPasses = make(map[string]PassConstructor)

// RegisterPass registers a pass constructor under the name reported by the
// passes it constructs. To be safe, call RegisterPass during initialization
// of a package.
func RegisterPass(constructor PassConstructor) {
	name := constructor().Name()
	if _, found := registeredPasses[name]; found {
		exceptions.Panicf("pass %q registered twice", name)
	}
	registeredPasses[name] = constructor
}

// NewPass instantiates the registered pass with the given name.
func NewPass(name string) (Pass, error) {
	constructor, found := registeredPasses[name]
	if !found {
		return nil, errors.Errorf("no pass registered under %q", name)
	}
	return constructor(), nil
}

// RegisteredPasses returns the names of all registered passes, sorted.
func RegisteredPasses() []string {
	names := make([]string, 0, len(registeredPasses))
	for name := range registeredPasses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// PassManager runs a sequence of passes over a module, stopping at the
// first failure.
type PassManager struct {
	passes []Pass
}

// NewPassManager returns an empty PassManager.
func NewPassManager() *PassManager {
	return &PassManager{}
}

// AddPass appends a pass to the pipeline. Returns the PassManager to allow
// chaining.
func (pm *PassManager) AddPass(pass Pass) *PassManager {
	pm.passes = append(pm.passes, pass)
	return pm
}

// Run applies the pipeline's passes to module, in order. It returns at the
// first pass failure, with the error wrapped with the failing pass's name.
func (pm *PassManager) Run(module *Module) error {
	for _, pass := range pm.passes {
		klog.V(1).Infof("running pass %s", pass.Name())
		if err := pass.Run(module); err != nil {
			return errors.WithMessagef(err, "pass %q failed", pass.Name())
		}
	}
	return nil
}
