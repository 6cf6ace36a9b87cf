// Package pipeline drives a full run: a year-tier queue over the period, a
// month-tier queue over each year's windows, one checkpoint file per year and
// a final compile that only reads those checkpoints back.
package pipeline
