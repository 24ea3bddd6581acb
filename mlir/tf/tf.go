// Package tf defines the "tf" and "tf_device" dialects for the mlir package:
// dialect registration, the operation names the transformation passes refer
// to, and helpers around tf_device.cluster operations.
//
// Only the identities needed by the passes are defined here; the "tf"
// dialect is open-ended, any OperationName with dialect "tf" is a valid tf
// operation.
package tf

import (
	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/gomlx/exceptions"
)

const (
	// DialectName is the namespace of TensorFlow operations.
	DialectName = "tf"

	// DeviceDialectName is the namespace of device-placement related
	// structural operations, e.g. tf_device.cluster.
	DeviceDialectName = "tf_device"
)

// RegisterDialects registers the "tf" and "tf_device" dialects in ctx.
// Idempotent.
func RegisterDialects(ctx *mlir.Context) {
	ctx.RegisterDialect(DialectName)
	ctx.RegisterDialect(DeviceDialectName)
}

// OpName returns the OperationName for a "tf" dialect operation, e.g.
// OpName("AddV2").
func OpName(op string) mlir.OperationName {
	return mlir.OpName(DialectName, op)
}

// Region-based control flow and its terminator.
var (
	IfRegionName    = OpName("IfRegion")
	WhileRegionName = OpName("WhileRegion")
	YieldName       = OpName("Yield")
)

// Embedding operations rewritten by a later device compilation stage.
var (
	RecvTPUEmbeddingActivationsName = OpName("RecvTPUEmbeddingActivations")
	SendTPUEmbeddingGradientsName   = OpName("SendTPUEmbeddingGradients")
)

// IsIfOrWhileRegion reports whether op is one of the region-based
// control-flow constructs (tf.IfRegion or tf.WhileRegion).
func IsIfOrWhileRegion(op *mlir.Operation) bool {
	return op.Name() == IfRegionName || op.Name() == WhileRegionName
}

// ClusterName is the identity of the tf_device.cluster operation: a chunk of
// the graph intended for compiled execution on a device, holding a single
// body region.
var ClusterName = mlir.OpName(DeviceDialectName, "cluster")

// AllowSoftPlacementAttr is the boolean attribute on a tf_device.cluster
// that opts the cluster into automatic outside compilation. Absent means
// false.
const AllowSoftPlacementAttr = "allow_soft_placement"

// NewCluster appends a tf_device.cluster operation to block and returns it.
// The cluster owns a fresh one-block body region.
func NewCluster(ctx *mlir.Context, block *mlir.Block) *mlir.Operation {
	cluster := block.AddOp(ctx, ClusterName)
	cluster.AddRegion()
	return cluster
}

// IsCluster reports whether op is a tf_device.cluster.
func IsCluster(op *mlir.Operation) bool {
	return op.Name() == ClusterName
}

// ClusterBody returns the body block of a tf_device.cluster operation. It
// panics if op is not a cluster.
func ClusterBody(op *mlir.Operation) *mlir.Block {
	if !IsCluster(op) {
		exceptions.Panicf("ClusterBody called on %s, expected %s", op.Name(), ClusterName)
	}
	return op.Regions()[0].FirstBlock()
}
