// SPDX-License-Identifier: EPL-2.0

// Package player is an in-memory playback surface built on beep.
//
// Load decodes a swap.Resource (WAV, MPEG or OGG) fully into memory, so the
// resource can play through as soon as Load returns. Playback state lives in
// a beep.Ctrl; the player is itself a beep.Streamer and has to be pulled,
// either by an audio device or by Drive:
//
//	p := player.New(player.WithName("live"))
//	go p.Drive(ctx, 20*time.Millisecond)
//	_ = p.Load(ctx, res)
//	_ = p.Play()
//
// BlockAutoplay mimics a browser that refuses to start playback before a
// user gesture, which is how a resume failure after a swap shows up.
package player
