package legalizetf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/TEE-JAY12/tensorflow/mlir/tf"
)

func TestPopulateLegalizeTFPatterns(t *testing.T) {
	patterns := PopulateLegalizeTFPatterns()
	require.NotEmpty(t, patterns)

	roots := make(map[mlir.OperationName]bool, len(patterns))
	for _, pattern := range patterns {
		assert.NotEmpty(t, pattern.Name)
		assert.Equal(t, tf.DialectName, pattern.RootKind.Dialect)
		assert.False(t, roots[pattern.RootKind], "duplicate pattern root %s", pattern.RootKind)
		roots[pattern.RootKind] = true
	}
	// A few anchors that must have a dedicated lowering.
	assert.True(t, roots[tf.OpName("AddV2")])
	assert.True(t, roots[tf.OpName("MatMul")])
	assert.True(t, roots[tf.OpName("Identity")])
}

func TestIsOpAllowedTf2XlaFallback(t *testing.T) {
	ctx := mlir.NewContext()
	tf.RegisterDialects(ctx)
	module := mlir.NewModule(ctx)

	cosh := module.Body().AddOp(ctx, tf.OpName("Cosh"))
	assert.True(t, IsOpAllowedTf2XlaFallback(cosh))

	// String processing ops never go through the fallback bridge.
	upper := module.Body().AddOp(ctx, tf.OpName("StringUpper"))
	assert.False(t, IsOpAllowedTf2XlaFallback(upper))
}
