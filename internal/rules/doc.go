// Package rules implements the deterministic checks run during technical
// review: image resolution, slide count and naming, text placement and the
// 8-point caption structure battery.
//
// Every check is a pure function of its inputs (plus reading a file header for
// resolution) and reports its outcome as a models.CheckResult. A failing check
// is data, never an error: missing files and empty captions produce failing
// results with a reason instead of aborting the review.
package rules
