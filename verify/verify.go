// Package verify provides diagnostics for the convolution pipeline.
//
// It offers two complementary tools:
//
// 1. Buffer checks (check.go): a Checker inspects a scratch buffer after a
// layer completes. The driver runs checkers as non-fatal diagnostics; a
// failed check becomes a ValidationWarning and the pass continues.
//
// 2. Static lint (lint.go): RunLint inspects a network description and a
// parameter stream length before anything runs.
//   - STRUCT checks: table alignment, positive sizes, weight shift range
//   - TILING checks: channel counts that the tile widths cannot split
//   - SHAPE checks: a layer's input shape that does not match the previous
//     layer's output shape
//   - PARAMS checks: a parameter stream whose length differs from the
//     total footprint of the convolution stage
//
// The driver never runs the lint itself. Tiling and parameter errors stay
// fatal at the layer where they are detected, so a network that fails the
// lint still fails at the same point when it runs.
//
// # Usage Example
//
//	network, _ := config.LoadNetworkFile("vgg16.yaml")
//	report := verify.GenerateReport(network, len(params))
//	report.WriteReport(os.Stdout)
//	if !report.OK() {
//	    log.Fatalf("network has %d lint issues", len(report.Issues))
//	}
package verify

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Misaligned or non-positive tables
	IssueTiling IssueType = "TILING" // Channels not divisible by a tile width
	IssueShape  IssueType = "SHAPE"  // Input shape does not chain from the previous layer
	IssueParams IssueType = "PARAMS" // Parameter stream length mismatch
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // Issue category
	Layer   int                    // Layer index (-1 if not applicable)
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}
