// SPDX-License-Identifier: EPL-2.0

// Package preview ties uploads, the combiner session and the swap scheduler
// together.
//
//	o := preview.New(engine.New(), scheduler)
//	err := o.Select(ctx, uploads)     // estimate, open session, first mix
//	err = o.SetVolume(ctx, id, 40)    // track updated now, mix in background
//	o.Reset()                         // release everything
//
// Select is all or nothing: if any file is empty, the engine rejects the set
// or the first mix fails, no tracks are kept.
//
// Volume edits are mixed one at a time in the background. An edit whose turn
// comes after a newer edit has been made is skipped without touching the
// engine. Finished mixes go to the scheduler, which makes sure the newest
// one is the last to play. A failed mix is logged and what is playing stays.
package preview
