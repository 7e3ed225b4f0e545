// Package tool implements Interactive Tool blocks: lesson-embedded
// calculators whose outputs are formulas over user-entered inputs.
//
// The package is split by concern:
//   - config: input/output definitions and JSON/YAML loading
//   - inputs: raw input strings to a numeric environment
//   - resolve: declaration-order evaluation of output formulas
//   - format: display strings for currency, percentage and plain numbers
//   - validate: offline authoring diagnostics
//   - store: persistence of tool records attached to lessons
package tool
