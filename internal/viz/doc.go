// Package viz owns the live AM chart.
//
// A [Controller] holds the slider parameters and one [Chart]. Every
// parameter change re-synthesizes the frame and rewrites the chart's data
// in place before handing it to a [RenderSink]:
//
//   - [AsciiSink]: asciigraph plot for terminals
//   - [RecordingSink]: keeps every draw, for tests
//
// # States
//
//	Uninitialized - no chart bound; parameter changes only update values
//	Idle          - chart bound and current
//	Refreshing    - inside a refresh; never visible outside the lock
//
// A failed synthesis leaves the last good chart and parameters in place.
package viz
