package tf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEE-JAY12/tensorflow/mlir"
)

func TestRegisterDialects(t *testing.T) {
	ctx := mlir.NewContext()
	RegisterDialects(ctx)
	require.NotNil(t, ctx.LoadedDialect(DialectName))
	require.NotNil(t, ctx.LoadedDialect(DeviceDialectName))
	RegisterDialects(ctx) // Idempotent.
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, "tf.IfRegion", IfRegionName.String())
	assert.Equal(t, "tf.WhileRegion", WhileRegionName.String())
	assert.Equal(t, "tf.Yield", YieldName.String())
	assert.Equal(t, "tf_device.cluster", ClusterName.String())
	assert.Equal(t, "tf.AddV2", OpName("AddV2").String())
}

func TestCluster(t *testing.T) {
	ctx := mlir.NewContext()
	RegisterDialects(ctx)
	module := mlir.NewModule(ctx)

	cluster := NewCluster(ctx, module.Body())
	require.True(t, IsCluster(cluster))
	body := ClusterBody(cluster)
	require.NotNil(t, body)
	assert.Same(t, cluster, body.ParentOp())

	ifOp := body.AddOp(ctx, IfRegionName)
	assert.True(t, IsIfOrWhileRegion(ifOp))
	assert.False(t, IsCluster(ifOp))
	assert.False(t, IsIfOrWhileRegion(cluster))

	assert.Panics(t, func() { ClusterBody(ifOp) })
}
