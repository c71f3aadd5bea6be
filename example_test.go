// SPDX-License-Identifier: EPL-2.0

package mixpreview_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ik5/mixpreview"
	"github.com/ik5/mixpreview/audio"
	"github.com/ik5/mixpreview/combiner"
	"github.com/ik5/mixpreview/engine"
	"github.com/ik5/mixpreview/formats/mp3"
	"github.com/ik5/mixpreview/formats/wav"
	"github.com/ik5/mixpreview/player"
	"github.com/ik5/mixpreview/preview"
	"github.com/ik5/mixpreview/swap"
)

func tone(rate, channels, frames int, v int16) []byte {
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = v
	}

	var buf bytes.Buffer
	_ = wav.WriteWAV16(&buf, rate, channels, samples)
	return buf.Bytes()
}

// Example_mix mixes two tracks of different lengths. The shorter one is
// padded with silence.
func Example_mix() {
	drums := audio.Encoded{Data: tone(44100, 1, 44100, 8000), Format: audio.FormatWAV}
	bass := audio.Encoded{Data: tone(44100, 2, 22050, 8000), Format: audio.FormatWAV}

	out, err := mixpreview.Mix(context.Background(), []audio.Encoded{drums, bass}, []int{100, 50})
	if err != nil {
		fmt.Println("mix error:", err)
		return
	}

	src, _ := wav.Decoder{}.Decode(bytes.NewReader(out.Data))
	samples, _ := audio.ReadAll(src)

	fmt.Printf("%s, %d Hz, %d channels, %d frames\n", out.Format, src.SampleRate(), src.Channels(), len(samples)/2)
	// Output: wav, 44100 Hz, 2 channels, 44100 frames
}

// Example_mixErrors shows how failures are told apart.
func Example_mixErrors() {
	broken := audio.Encoded{Data: []byte("not audio"), Format: audio.FormatWAV}
	good := audio.Encoded{Data: tone(8000, 1, 100, 1), Format: audio.FormatWAV}

	_, err := mixpreview.Mix(context.Background(), []audio.Encoded{broken}, nil)
	fmt.Println("engine init:", errors.Is(err, combiner.ErrEngineInit))

	_, err = mixpreview.Mix(context.Background(), []audio.Encoded{good}, []int{150})
	fmt.Println("bad volume:", errors.Is(err, combiner.ErrInvalidVolumes))
	// Output:
	// engine init: true
	// bad volume: true
}

// Example_estimate reads a duration off the first MPEG frame header.
func Example_estimate() {
	// 128 kbps header followed by padding, 1 MB in total
	data := make([]byte, 1_000_000)
	copy(data, []byte{0xFF, 0xFB, 0x90, 0x44})

	fmt.Println(mp3.Estimate(data))
	// Output: 00:01:02
}

// Example_preview runs the whole preview pipeline: select files, change a
// volume and wait for the new mix to go live.
func Example_preview() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	live, hidden := player.New(), player.New()
	sched := swap.New(live, hidden)
	defer sched.Close()

	orch := preview.New(engine.New(engine.WithSampleRate(8000)), sched)
	defer orch.Reset()

	err := orch.Select(ctx, []preview.Upload{
		{Name: "drums.wav", MIMEType: "audio/wav", Data: tone(8000, 1, 8000, 4000)},
		{Name: "bass.wav", MIMEType: "audio/wav", Data: tone(8000, 1, 4000, 4000)},
	})
	if err != nil {
		fmt.Println("select error:", err)
		return
	}

	_ = orch.SetVolume(ctx, orch.Tracks()[1].ID, 25)
	_ = orch.Wait(ctx)

	for _, t := range orch.Tracks() {
		fmt.Printf("%s volume=%d\n", t.Name, t.Volume)
	}
	fmt.Println("live duration:", live.Duration())
	fmt.Println("live resources:", sched.Store().Stats().Live)
	// Output:
	// drums.wav volume=100
	// bass.wav volume=25
	// live duration: 1s
	// live resources: 1
}
