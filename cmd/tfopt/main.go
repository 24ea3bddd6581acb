// tfopt runs registered mlir passes over a demonstration module and prints
// the IR before and after, plus a per-cluster marking summary.
//
// There is no textual IR parser, so the input module is built in-process: a
// representative program with soft-placement and fixed-placement device
// clusters, string-processing ops and region-based control flow.
//
// Example:
//
//	tfopt -passes=tf-mark-ops-for-outside-compilation
//	tfopt -list
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/TEE-JAY12/tensorflow/mlir"
	"github.com/TEE-JAY12/tensorflow/mlir/tf"
	"github.com/TEE-JAY12/tensorflow/mlir/transforms" // Imported for its registered passes too.
)

var (
	flagPasses = flag.String("passes", "tf-mark-ops-for-outside-compilation",
		"Comma-separated list of registered pass names to run, in order.")
	flagList  = flag.Bool("list", false, "List the registered passes and exit.")
	flagQuiet = flag.Bool("quiet", false, "Only print the summary table, not the IR.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *flagList {
		for _, name := range mlir.RegisteredPasses() {
			pass := must.M1(mlir.NewPass(name))
			fmt.Printf("%-40s %s\n", name, pass.Description())
		}
		return
	}

	ctx := mlir.NewContext()
	tf.RegisterDialects(ctx)
	module := buildDemoModule(ctx)

	if !*flagQuiet {
		fmt.Printf("// ----- before -----\n%s\n\n", module)
	}

	pm := mlir.NewPassManager()
	for _, name := range strings.Split(*flagPasses, ",") {
		pass, err := mlir.NewPass(strings.TrimSpace(name))
		if err != nil {
			klog.Errorf("%v -- see 'tfopt -list'", err)
			os.Exit(1)
		}
		pm.AddPass(pass)
	}
	if err := pm.Run(module); err != nil {
		klog.Errorf("pass pipeline failed: %+v", err)
		os.Exit(1)
	}

	if !*flagQuiet {
		fmt.Printf("// ----- after -----\n%s\n\n", module)
	}
	printClusterSummary(module)
}

// buildDemoModule assembles a module with three clusters: one soft-placement
// cluster mixing supported ops, an unknown op and a string-capturing
// tf.IfRegion; one soft-placement cluster that is fully supported; and one
// fixed-placement cluster that passes must leave untouched.
func buildDemoModule(ctx *mlir.Context) *mlir.Module {
	module := mlir.NewModule(ctx)
	body := module.Body()

	filename := body.AddOp(ctx, tf.OpName("Const")).AddResult(mlir.StringTensor())

	mixed := tf.NewCluster(ctx, body)
	mixed.SetAttr(tf.AllowSoftPlacementAttr, true)
	mixedBody := tf.ClusterBody(mixed)
	x := mixedBody.AddOp(ctx, tf.OpName("Const")).AddResult(mlir.TensorOf(dtypes.Float32))
	y := mixedBody.AddOp(ctx, tf.OpName("AddV2"), x, x).AddResult(mlir.TensorOf(dtypes.Float32))
	mixedBody.AddOp(ctx, tf.OpName("WriteSummaryV2"), filename, y)
	ifOp := mixedBody.AddOp(ctx, tf.IfRegionName)
	ifOp.AddRegion().FirstBlock().AddOp(ctx, tf.YieldName, filename)

	supported := tf.NewCluster(ctx, body)
	supported.SetAttr(tf.AllowSoftPlacementAttr, true)
	supportedBody := tf.ClusterBody(supported)
	a := supportedBody.AddOp(ctx, tf.OpName("Const")).AddResult(mlir.TensorOf(dtypes.Float32))
	supportedBody.AddOp(ctx, tf.OpName("MatMul"), a, a).AddResult(mlir.TensorOf(dtypes.Float32))

	fixed := tf.NewCluster(ctx, body)
	fixedBody := tf.ClusterBody(fixed)
	fixedBody.AddOp(ctx, tf.OpName("SomeUnknownOp"))

	return module
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	rowStyle = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
)

func printClusterSummary(module *mlir.Module) {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row < 0 {
				return headerRowStyle
			}
			return rowStyle
		}).
		Headers("Cluster", "Soft placement", "Ops", "Outside compiled")

	clusterIdx := 0
	module.Walk(func(op *mlir.Operation) mlir.WalkResult {
		if !tf.IsCluster(op) {
			return mlir.WalkAdvance
		}
		softPlacement, _ := op.BoolAttr(tf.AllowSoftPlacementAttr)
		var numOps, numMarked int
		tf.ClusterBody(op).Walk(func(inner *mlir.Operation) mlir.WalkResult {
			numOps++
			if inner.HasAttr(transforms.XlaOutsideCompilationAttr) {
				numMarked++
			}
			return mlir.WalkAdvance
		})
		table.Row(
			fmt.Sprintf("#%d", clusterIdx),
			fmt.Sprintf("%v", softPlacement),
			humanize.Comma(int64(numOps)),
			humanize.Comma(int64(numMarked)))
		clusterIdx++
		return mlir.WalkAdvance
	})
	fmt.Println(table.Render())
}
