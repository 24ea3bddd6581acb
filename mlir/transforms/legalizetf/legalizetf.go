// Package legalizetf exposes the catalog of tf-to-device legalization
// patterns and the tf2xla fallback oracle, in the form the transformation
// passes consume them: pattern descriptors naming the operation kind each
// pattern rewrites, and a pure predicate for fallback-lowerable operations.
//
// The pattern bodies themselves (how an operation is lowered) belong to the
// device lowering stage and are not represented here; passes only ever ask
// "which operation kinds have a dedicated lowering".
package legalizetf

import (
	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/TEE-JAY12/tensorflow/mlir/tf"
)

// Pattern describes one legalization rewrite: a rule lowering every
// operation of kind RootKind into a device-representable form.
type Pattern struct {
	// Name of the pattern, for diagnostics.
	Name string

	// RootKind is the operation kind the pattern rewrites.
	RootKind mlir.OperationName
}

// legalizableOps lists the tf operations with a dedicated legalization
// pattern. Having a pattern doesn't guarantee the lowering succeeds for
// every instance, but an operation absent from this list cannot be lowered
// by the legalization stage at all.
var legalizableOps = []string{
	"Abs", "Acos", "Add", "AddN", "AddV2", "All", "Any", "ArgMax", "ArgMin",
	"Atan", "Atan2", "AvgPool", "BatchMatMulV2", "BiasAdd", "BroadcastTo",
	"Cast", "Ceil", "ConcatV2", "Const", "Conv2D", "Conv2DBackpropFilter",
	"Conv2DBackpropInput", "Cos", "Cumsum", "DepthwiseConv2dNative", "Div",
	"DynamicStitch", "Einsum", "Elu", "Empty", "Equal", "Exp", "ExpandDims",
	"Fill", "Floor", "FloorDiv", "FloorMod", "FusedBatchNormV3", "GatherV2",
	"Greater", "GreaterEqual", "Identity", "IdentityN", "LeakyRelu", "Less",
	"LessEqual", "LinSpace", "Log", "Log1p", "LogSoftmax", "LogicalAnd",
	"LogicalNot", "LogicalOr", "MatMul", "Max", "MaxPool", "Maximum", "Mean",
	"Min", "Minimum", "MirrorPad", "Mul", "Neg", "NoOp", "NotEqual",
	"OneHot", "Pack", "Pad", "PadV2", "Pow", "Prod", "RandomStandardNormal",
	"RandomUniform", "Range", "RealDiv", "Reciprocal", "Relu", "Relu6",
	"ReluGrad", "Reshape", "ReverseV2", "Round", "Rsqrt", "Select",
	"SelectV2", "Shape", "Sigmoid", "Sign", "Sin", "Size", "Slice",
	"Softmax", "Softplus", "SpaceToBatchND", "Split", "SplitV", "Sqrt",
	"Square", "SquaredDifference", "Squeeze", "StopGradient",
	"StridedSlice", "Sub", "Sum", "Tanh", "Tile", "TopKV2", "Transpose",
	"Unpack", "Where", "ZerosLike",
}

// PopulateLegalizeTFPatterns returns the catalog of legalization pattern
// descriptors, one per legalizable tf operation kind. The returned slice is
// freshly allocated, callers may reorder it freely; the set of root kinds is
// what matters, construction is purely additive.
func PopulateLegalizeTFPatterns() []Pattern {
	patterns := make([]Pattern, 0, len(legalizableOps))
	for _, op := range legalizableOps {
		patterns = append(patterns, Pattern{
			Name:     "ConvertOp" + op,
			RootKind: tf.OpName(op),
		})
	}
	return patterns
}

// fallbackLowerableOps lists the tf operations without a dedicated pattern
// that the tf2xla fallback bridge can still lower through kernel
// compilation. If not listed, it's assumed to be false, hence not lowerable
// via fallback.
var fallbackLowerableOps = []string{
	"Acosh", "Asin", "Asinh", "Atanh", "BatchToSpaceND", "Bitcast",
	"BitwiseAnd", "BitwiseOr", "BitwiseXor", "ClipByValue", "Conj", "Cosh",
	"Cross", "Diag", "DiagPart", "Digamma", "Erf", "Erfc", "Expm1", "Inv",
	"Invert", "InvertPermutation", "LeftShift", "Lgamma", "ListDiff",
	"MatrixBandPart", "MatrixDiag", "MatrixDiagPart", "MatrixInverse",
	"MatrixSetDiag", "Multinomial", "RightShift", "Rint", "Sinh",
	"SpaceToDepth", "Tan", "TruncateDiv", "TruncateMod", "Unique", "Xdivy",
	"Xlog1py", "Xlogy",
}

var fallbackOps = func() map[mlir.OperationName]bool {
	ops := make(map[mlir.OperationName]bool, len(fallbackLowerableOps))
	for _, op := range fallbackLowerableOps {
		ops[tf.OpName(op)] = true
	}
	return ops
}()

// IsOpAllowedTf2XlaFallback reports whether op can be lowered through the
// generic tf2xla fallback bridge even without a dedicated legalization
// pattern. Pure predicate, no side effects.
func IsOpAllowedTf2XlaFallback(op *mlir.Operation) bool {
	return fallbackOps[op.Name()]
}
