// SPDX-License-Identifier: EPL-2.0

// Package combiner holds the session that sits between the preview
// orchestrator and a mixing engine.
//
// A Session is opened once per upload batch and owns the engine Handle for
// that batch:
//
//	sess, err := combiner.Open(ctx, eng, tracks)
//	if errors.Is(err, combiner.ErrEngineInit) {
//	    // abandon the batch
//	}
//	defer sess.Release()
//
//	mix, err := sess.Recombine(ctx, []int{100, 50})
//	if errors.Is(err, combiner.ErrMix) {
//	    // keep whatever is already playing
//	}
//
// Engines report failure through the error return, and a result that carries
// no data or an unknown format is treated as a failure too. Release may be
// called any number of times; the handle underneath is released once, after
// any Recombine already running has returned.
package combiner
