// Package harness measures how well the admission pipeline separates
// malicious from benign code.
//
// A Harness runs a labeled corpus through the validator, and through the
// sandbox runner when one is configured, strictly in corpus order. The
// verdict of a case depends only on whether it was blocked; runtime errors of
// admitted cases are recorded beside the verdict. The resulting Report
// carries the detection rate, the false-positive rate, a per-category
// breakdown and the list of critical gaps (malicious cases that got through).
package harness
