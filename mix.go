// SPDX-License-Identifier: EPL-2.0

package mixpreview

import (
	"context"
	"fmt"
	"os"

	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/combiner"
	"github.com/ik5/mixpreview/engine"
)

// Mix is a one-shot mixdown. It decodes tracks, sums them weighted by
// volumes (0-100, one per track) and returns a 16-bit stereo WAV at
// engine.DefaultSampleRate.
//
// A nil volumes slice mixes every track at full volume.
//
//	out, err := mixpreview.Mix(ctx, []audio.Encoded{drums, bass}, []int{80, 100})
func Mix(ctx context.Context, tracks []audio.Encoded, volumes []int, opts ...engine.Option) (audio.Encoded, error) {
	if volumes == nil {
		volumes = make([]int, len(tracks))
		for i := range volumes {
			volumes[i] = combiner.MaxVolume
		}
	}

	sess, err := combiner.Open(ctx, engine.New(opts...), tracks)
	if err != nil {
		return audio.Encoded{}, err
	}
	defer sess.Release()

	return sess.Recombine(ctx, volumes)
}

// MixFiles reads paths from disk, picking each format from the file
// extension, and mixes them like Mix.
func MixFiles(ctx context.Context, paths []string, volumes []int, opts ...engine.Option) (audio.Encoded, error) {
	tracks := make([]audio.Encoded, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return audio.Encoded{}, fmt.Errorf("read %s: %w", p, err)
		}
		tracks[i] = audio.Encoded{Data: data, Format: audio.FormatFromPath(p)}
	}

	return Mix(ctx, tracks, volumes, opts...)
}
