// Package transforms implements whole-module transformation passes over the
// mlir IR. Passes mutate the module in place and keep no state between runs,
// see mlir.Pass.
package transforms

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/TEE-JAY12/tensorflow/mlir/tf"
	"github.com/TEE-JAY12/tensorflow/mlir/transforms/legalizetf"
)

// XlaOutsideCompilationAttr marks an operation for outside compilation: the
// operation will be extracted to run on the host instead of the device. The
// attribute's presence is what matters; this pass always writes the value
// "auto".
const XlaOutsideCompilationAttr = "_xla_outside_compilation"

// xlaOutsideCompilationAuto is the value written under
// XlaOutsideCompilationAttr for automatically determined outside
// compilation.
const xlaOutsideCompilationAuto = "auto"

// MarkOpsForOutsideCompilation marks unsupported ops in a device cluster
// with the XlaOutsideCompilationAttr attribute so the operations will run on
// the host instead of the device. Unsupported ops are ops that cannot be
// code generated to run on the device for the cluster.
//
// Only clusters carrying allow_soft_placement=true are processed; for all
// other clusters a prior placement stage already guarantees every op is
// supported, and the pass leaves them untouched.
type MarkOpsForOutsideCompilation struct {
	// Fallback is the fallback-eligibility oracle: it reports whether an
	// operation without a dedicated legalization pattern can still be
	// lowered through a generic fallback path. Left nil, it defaults to
	// legalizetf.IsOpAllowedTf2XlaFallback.
	Fallback func(*mlir.Operation) bool
}

func init() {
	mlir.RegisterPass(func() mlir.Pass {
		return &MarkOpsForOutsideCompilation{}
	})
}

// Name implements mlir.Pass.
func (p *MarkOpsForOutsideCompilation) Name() string {
	return "tf-mark-ops-for-outside-compilation"
}

// Description implements mlir.Pass.
func (p *MarkOpsForOutsideCompilation) Description() string {
	return "Marks unsupported ops in a device cluster for outside compilation."
}

// buildSupportedOps returns the set of operation kinds that can potentially
// be lowered on the device: the root kind of every legalization pattern,
// plus the region-based control-flow constructs handled by the control-flow
// legalization, plus the embedding ops rewritten when compiling for the
// device. Membership doesn't guarantee a later lowering succeeds, but an
// op outside the set can never be lowered.
func buildSupportedOps(patterns []legalizetf.Pattern) mapset.Set[mlir.OperationName] {
	supported := mapset.NewThreadUnsafeSet[mlir.OperationName]()
	for _, pattern := range patterns {
		supported.Add(pattern.RootKind)
	}
	addSupportedControlFlowOps(supported)
	addRewrittenEmbeddingOps(supported)
	return supported
}

// TODO: derive the control-flow entries from the control-flow legalization
// pass instead of listing them here, once that pass exposes its catalog.
func addSupportedControlFlowOps(supported mapset.Set[mlir.OperationName]) {
	supported.Add(tf.IfRegionName)
	supported.Add(tf.WhileRegionName)
	supported.Add(tf.YieldName)
}

// These embedding ops are rewritten when compiling the cluster for the
// device, so they count as supported even without a legalization pattern.
func addRewrittenEmbeddingOps(supported mapset.Set[mlir.OperationName]) {
	supported.Add(tf.RecvTPUEmbeddingActivationsName)
	supported.Add(tf.SendTPUEmbeddingGradientsName)
}

func hasStringOperand(op *mlir.Operation) bool {
	for _, operand := range op.Operands() {
		if operand.Type().IsString {
			return true
		}
	}
	return false
}

func hasStringResult(op *mlir.Operation) bool {
	for _, result := range op.Results() {
		if result.Type().IsString {
			return true
		}
	}
	return false
}

func matchesPattern(op *mlir.Operation, supportedOps mapset.Set[mlir.OperationName]) bool {
	return supportedOps.Contains(op.Name())
}

// isSupportedOp checks if the op is supported inside of a device cluster.
// Ops not in tfDialect are considered supported. String operands or results
// exclude an op unconditionally: the device representation cannot carry
// them, whatever the pattern catalog or the fallback oracle say.
func (p *MarkOpsForOutsideCompilation) isSupportedOp(op *mlir.Operation,
	supportedOps mapset.Set[mlir.OperationName], tfDialect *mlir.Dialect) bool {
	if op.Dialect() != tfDialect {
		return true
	}
	return !hasStringOperand(op) && !hasStringResult(op) &&
		(matchesPattern(op, supportedOps) || p.fallback(op))
}

func (p *MarkOpsForOutsideCompilation) fallback(op *mlir.Operation) bool {
	if p.Fallback != nil {
		return p.Fallback(op)
	}
	return legalizetf.IsOpAllowedTf2XlaFallback(op)
}

// hasCapturedStringOperand checks all regions of op for captured string
// values: values used inside a region but defined outside it. A control-flow
// construct capturing a string must itself be outside compiled, otherwise
// the captured string would still be materialized on the device path.
func hasCapturedStringOperand(op *mlir.Operation) bool {
	stringOperand := false
	for _, region := range op.Regions() {
		mlir.VisitUsedValuesDefinedAbove(region, func(_ *mlir.Operation, operand *mlir.Value) {
			if operand.Type().IsString {
				stringOperand = true
			}
		})
		if stringOperand {
			return true
		}
	}
	return false
}

func markOp(op *mlir.Operation) {
	op.SetAttr(XlaOutsideCompilationAttr, xlaOutsideCompilationAuto)
}

// markUncompilableOps marks the ops in block (and everything nested in it)
// that are in tfDialect and cannot be compiled for the device. Mutation is
// monotonic: ops only ever gain the marking in this phase, so traversal
// order doesn't affect the final attribute set.
func (p *MarkOpsForOutsideCompilation) markUncompilableOps(tfDialect *mlir.Dialect,
	block *mlir.Block, supportedOps mapset.Set[mlir.OperationName]) {
	block.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if !p.isSupportedOp(op, supportedOps, tfDialect) {
			markOp(op)
		}
		if tf.IsIfOrWhileRegion(op) && hasCapturedStringOperand(op) {
			markOp(op)
		}
		return mlir.WalkAdvance
	})
}

// unmarkChildren removes the marking from any op that has an ancestor
// already marked for outside compilation: the ancestor's extraction carries
// its whole subtree, a marked descendant would create a redundant extraction
// boundary. The ancestor walk stops at the cluster boundary, block is the
// cluster's body.
func unmarkChildren(block *mlir.Block) {
	clusterOp := block.ParentOp()
	block.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if _, marked := op.StringAttr(XlaOutsideCompilationAttr); !marked {
			return mlir.WalkAdvance
		}
		removeAttr := false
		for parentOp := op.ParentOp(); parentOp != nil && parentOp != clusterOp; parentOp = parentOp.ParentOp() {
			if _, marked := parentOp.StringAttr(XlaOutsideCompilationAttr); marked {
				removeAttr = true
				break
			}
		}
		if removeAttr {
			op.RemoveAttr(XlaOutsideCompilationAttr)
		}
		return mlir.WalkAdvance
	})
}

// allowsSoftPlacement reports whether the cluster opted into automatic
// outside compilation. Absent or false means the cluster must be left
// byte-for-byte unchanged.
func allowsSoftPlacement(cluster *mlir.Operation) bool {
	value, found := cluster.BoolAttr(tf.AllowSoftPlacementAttr)
	return found && value
}

// Run implements mlir.Pass. It performs two strictly sequential
// whole-module phases: first mark every soft-placement cluster, then unmark
// redundant children in every soft-placement cluster. The phase boundary is
// a correctness requirement — a child's unmarking depends on the final
// marked state of its ancestors, not a partial one.
func (p *MarkOpsForOutsideCompilation) Run(module *mlir.Module) error {
	tfDialect := module.Context().LoadedDialect(tf.DialectName)
	if tfDialect == nil {
		return errors.Errorf("'%s' dialect is not registered", tf.DialectName)
	}

	// supportedOps contains the name of all of the ops that can potentially
	// be lowered on the device. This doesn't always mean that the op will be
	// lowered in the later passes, but if the op is not in this set, it
	// can't be lowered there.
	supportedOps := buildSupportedOps(legalizetf.PopulateLegalizeTFPatterns())
	klog.V(1).Infof("%s: %d supported op kinds", p.Name(), supportedOps.Cardinality())

	module.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if !tf.IsCluster(op) || !allowsSoftPlacement(op) {
			return mlir.WalkAdvance
		}
		p.markUncompilableOps(tfDialect, tf.ClusterBody(op), supportedOps)
		return mlir.WalkAdvance
	})

	module.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if !tf.IsCluster(op) || !allowsSoftPlacement(op) {
			return mlir.WalkAdvance
		}
		unmarkChildren(tf.ClusterBody(op))
		return mlir.WalkAdvance
	})
	return nil
}
