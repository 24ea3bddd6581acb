package transforms

import (
	"maps"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/TEE-JAY12/tensorflow/mlir/tf"
)

func newTestModule(t *testing.T) (*mlir.Context, *mlir.Module) {
	t.Helper()
	ctx := mlir.NewContext()
	tf.RegisterDialects(ctx)
	return ctx, mlir.NewModule(ctx)
}

func isMarked(op *mlir.Operation) bool {
	value, found := op.StringAttr(XlaOutsideCompilationAttr)
	return found && value == "auto"
}

// markedOps returns the set of operations currently carrying the outside
// compilation marking, keyed by identity.
func markedOps(module *mlir.Module) map[*mlir.Operation]bool {
	marked := make(map[*mlir.Operation]bool)
	module.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if isMarked(op) {
			marked[op] = true
		}
		return mlir.WalkAdvance
	})
	return marked
}

// attrSnapshot captures every operation's full attribute map, for
// change-detection assertions.
func attrSnapshot(module *mlir.Module) map[*mlir.Operation]map[string]any {
	snapshot := make(map[*mlir.Operation]map[string]any)
	module.Walk(func(op *mlir.Operation) mlir.WalkResult {
		attrs := make(map[string]any)
		for _, key := range []string{XlaOutsideCompilationAttr, tf.AllowSoftPlacementAttr} {
			if value := op.Attr(key); value != nil {
				attrs[key] = value
			}
		}
		snapshot[op] = attrs
		return mlir.WalkAdvance
	})
	return snapshot
}

// buildScenario builds the recurring test structure: a cluster containing a
// tf.WhileRegion (op A) whose body holds one unknown op (op B, no
// legalization pattern, rejected by the fallback oracle). With
// capturedString, the while body additionally uses a string value defined
// outside the cluster.
func buildScenario(t *testing.T, softPlacement, capturedString bool) (module *mlir.Module, whileOp, unknownOp *mlir.Operation) {
	t.Helper()
	ctx, module := newTestModule(t)

	outsideString := module.Body().AddOp(ctx, tf.OpName("Const")).AddResult(mlir.StringTensor())

	cluster := tf.NewCluster(ctx, module.Body())
	if softPlacement {
		cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	} else {
		cluster.SetAttr(tf.AllowSoftPlacementAttr, false)
	}
	body := tf.ClusterBody(cluster)

	whileOp = body.AddOp(ctx, tf.WhileRegionName)
	loopBody := whileOp.AddRegion().FirstBlock()
	unknownOp = loopBody.AddOp(ctx, tf.OpName("CustomHostOnlyOp"))
	unknownOp.AddResult(mlir.TensorOf(dtypes.Float32))
	if capturedString {
		loopBody.AddOp(ctx, tf.OpName("Identity"), outsideString).AddResult(mlir.StringTensor())
	}
	loopBody.AddOp(ctx, tf.YieldName)
	return
}

func runPass(t *testing.T, module *mlir.Module) {
	t.Helper()
	pass := &MarkOpsForOutsideCompilation{}
	require.NoError(t, pass.Run(module))
}

func TestUnsupportedNestedOpMarked(t *testing.T) {
	module, whileOp, unknownOp := buildScenario(t, true, false)
	runPass(t, module)

	assert.True(t, isMarked(unknownOp), "op without pattern nor fallback must be marked")
	assert.False(t, isMarked(whileOp), "supported control-flow wrapper must stay unmarked")
	value, _ := unknownOp.StringAttr(XlaOutsideCompilationAttr)
	assert.Equal(t, "auto", value)
}

func TestCapturedStringCollapsesToWrapper(t *testing.T) {
	module, whileOp, unknownOp := buildScenario(t, true, true)
	runPass(t, module)

	assert.True(t, isMarked(whileOp), "wrapper capturing a string value must be marked")
	assert.False(t, isMarked(unknownOp), "descendant of a marked ancestor must be unmarked")
	assert.Equal(t, map[*mlir.Operation]bool{whileOp: true}, markedOps(module))
}

func TestGateRespectedWhenAttrFalse(t *testing.T) {
	module, _, _ := buildScenario(t, false, false)
	before := attrSnapshot(module)
	runPass(t, module)
	assert.Equal(t, before, attrSnapshot(module), "cluster without soft placement must be untouched")
}

func TestGateRespectedWhenAttrAbsent(t *testing.T) {
	ctx, module := newTestModule(t)
	cluster := tf.NewCluster(ctx, module.Body()) // No allow_soft_placement at all.
	tf.ClusterBody(cluster).AddOp(ctx, tf.OpName("CustomHostOnlyOp"))

	before := attrSnapshot(module)
	runPass(t, module)
	assert.Equal(t, before, attrSnapshot(module))
}

func TestIdempotence(t *testing.T) {
	module, _, _ := buildScenario(t, true, true)
	runPass(t, module)
	once := attrSnapshot(module)
	runPass(t, module)
	assert.Equal(t, once, attrSnapshot(module), "second run must not change any marking")
}

func TestDialectExclusion(t *testing.T) {
	ctx, module := newTestModule(t)
	ctx.RegisterDialect("mhlo")
	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	body := tf.ClusterBody(cluster)

	// Unknown op name and even string results: out-of-dialect ops are not
	// this pass's concern.
	foreign := body.AddOp(ctx, mlir.OpName("mhlo", "custom_call"))
	foreign.AddResult(mlir.StringTensor())

	runPass(t, module)
	assert.Empty(t, markedOps(module))
}

func TestTextExclusionOverridesSupport(t *testing.T) {
	ctx, module := newTestModule(t)
	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	body := tf.ClusterBody(cluster)

	stringValue := body.AddOp(ctx, tf.OpName("Const")).AddResult(mlir.StringTensor())

	// tf.Identity has a legalization pattern, the string operand excludes
	// it regardless.
	withStringOperand := body.AddOp(ctx, tf.OpName("Identity"), stringValue)
	withStringOperand.AddResult(mlir.TensorOf(dtypes.Float32))

	// Same for a string result, even with an accept-everything oracle.
	withStringResult := body.AddOp(ctx, tf.OpName("AsString"))
	withStringResult.AddResult(mlir.StringTensor())

	pass := &MarkOpsForOutsideCompilation{Fallback: func(*mlir.Operation) bool { return true }}
	require.NoError(t, pass.Run(module))

	assert.True(t, isMarked(withStringOperand))
	assert.True(t, isMarked(withStringResult))
}

func TestFallbackOracleAcceptsOp(t *testing.T) {
	module, _, unknownOp := buildScenario(t, true, false)

	pass := &MarkOpsForOutsideCompilation{
		Fallback: func(op *mlir.Operation) bool { return op == unknownOp },
	}
	require.NoError(t, pass.Run(module))
	assert.Empty(t, markedOps(module), "oracle-accepted op must not be marked")
}

func TestDefaultFallbackOracle(t *testing.T) {
	ctx, module := newTestModule(t)
	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	body := tf.ClusterBody(cluster)

	// tf.Cosh has no legalization pattern but is lowerable through the
	// tf2xla fallback bridge.
	cosh := body.AddOp(ctx, tf.OpName("Cosh"))
	cosh.AddResult(mlir.TensorOf(dtypes.Float32))

	runPass(t, module)
	assert.False(t, isMarked(cosh))
}

func TestAncestorCollapse(t *testing.T) {
	ctx, module := newTestModule(t)
	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	body := tf.ClusterBody(cluster)

	// Three unsupported ops nested in one structural chain: after the pass
	// only the topmost may retain the marking.
	outer := body.AddOp(ctx, tf.OpName("HostWrapperA"))
	middle := outer.AddRegion().FirstBlock().AddOp(ctx, tf.OpName("HostWrapperB"))
	inner := middle.AddRegion().FirstBlock().AddOp(ctx, tf.OpName("HostLeaf"))

	// An independent unsupported op in the same cluster, no marked
	// ancestor: stays marked.
	sibling := body.AddOp(ctx, tf.OpName("HostSibling"))

	runPass(t, module)
	assert.Equal(t, map[*mlir.Operation]bool{outer: true, sibling: true}, markedOps(module))
	assert.False(t, isMarked(middle))
	assert.False(t, isMarked(inner))
}

func TestCaptureOverrideWithAllSupportedBody(t *testing.T) {
	ctx, module := newTestModule(t)

	outsideString := module.Body().AddOp(ctx, tf.OpName("Const")).AddResult(mlir.StringTensor())

	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	body := tf.ClusterBody(cluster)

	ifOp := body.AddOp(ctx, tf.IfRegionName)
	thenBlock := ifOp.AddRegion().FirstBlock()
	// tf.Yield is supported; the captured string alone forces the wrapper
	// out.
	thenBlock.AddOp(ctx, tf.YieldName, outsideString)

	pass := &MarkOpsForOutsideCompilation{Fallback: func(*mlir.Operation) bool { return true }}
	require.NoError(t, pass.Run(module))
	assert.Equal(t, map[*mlir.Operation]bool{ifOp: true}, markedOps(module))
}

func TestCapturedNumericValueDoesNotOverride(t *testing.T) {
	ctx, module := newTestModule(t)

	outside := module.Body().AddOp(ctx, tf.OpName("Const")).AddResult(mlir.TensorOf(dtypes.Float32))

	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)
	ifOp := tf.ClusterBody(cluster).AddOp(ctx, tf.IfRegionName)
	ifOp.AddRegion().FirstBlock().AddOp(ctx, tf.YieldName, outside)

	runPass(t, module)
	assert.Empty(t, markedOps(module))
}

func TestMultipleClustersMarkedIndependently(t *testing.T) {
	ctx, module := newTestModule(t)

	gated := tf.NewCluster(ctx, module.Body())
	gated.SetAttr(tf.AllowSoftPlacementAttr, true)
	gatedOp := tf.ClusterBody(gated).AddOp(ctx, tf.OpName("CustomHostOnlyOp"))

	ungated := tf.NewCluster(ctx, module.Body())
	ungatedOp := tf.ClusterBody(ungated).AddOp(ctx, tf.OpName("CustomHostOnlyOp"))

	runPass(t, module)
	assert.True(t, isMarked(gatedOp))
	assert.False(t, isMarked(ungatedOp))
}

func TestMissingTFDialectIsFatal(t *testing.T) {
	ctx := mlir.NewContext()
	ctx.RegisterDialect(tf.DeviceDialectName) // "tf" itself left unregistered.
	module := mlir.NewModule(ctx)
	cluster := tf.NewCluster(ctx, module.Body())
	cluster.SetAttr(tf.AllowSoftPlacementAttr, true)

	before := attrSnapshot(module)
	pass := &MarkOpsForOutsideCompilation{}
	err := pass.Run(module)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'tf' dialect is not registered")
	assert.Equal(t, before, attrSnapshot(module), "failed run must not leave partial mutation")
}

func TestPassIsRegistered(t *testing.T) {
	pass, err := mlir.NewPass("tf-mark-ops-for-outside-compilation")
	require.NoError(t, err)
	assert.Equal(t, "tf-mark-ops-for-outside-compilation", pass.Name())
	assert.NotEmpty(t, pass.Description())
	assert.Contains(t, mlir.RegisteredPasses(), pass.Name())
}

func TestBuildSupportedOps(t *testing.T) {
	supported := buildSupportedOps(nil)
	// Even with an empty catalog the fixed control-flow and embedding
	// entries are present.
	for _, name := range []mlir.OperationName{
		tf.IfRegionName, tf.WhileRegionName, tf.YieldName,
		tf.RecvTPUEmbeddingActivationsName, tf.SendTPUEmbeddingGradientsName,
	} {
		assert.True(t, supported.Contains(name), "missing %s", name)
	}
	assert.Equal(t, 5, supported.Cardinality())
}

func TestAttrSnapshotHelper(t *testing.T) {
	// Guards the test helper itself: cloned maps, not aliases.
	ctx, module := newTestModule(t)
	op := module.Body().AddOp(ctx, tf.OpName("Const"))
	op.SetAttr(XlaOutsideCompilationAttr, "auto")
	snapshot := attrSnapshot(module)
	clone := maps.Clone(snapshot[op])
	op.RemoveAttr(XlaOutsideCompilationAttr)
	assert.Equal(t, clone, snapshot[op])
}
