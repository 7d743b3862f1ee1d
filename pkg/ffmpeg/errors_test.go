package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const banner = `ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers
built with gcc 13.2.0 (GCC)
configuration: --prefix=/usr --enable-gpl --enable-libx264
libavutil      58. 29.100 / 58. 29.100
libavcodec     60. 31.102 / 60. 31.102
libavformat    60. 16.100 / 60. 16.100
`

func TestClassifyPrefersFailureKeywordLines(t *testing.T) {
	diag := banner + `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input.mp4':
[mov,mp4,m4a,3gp,3g2,mj2 @ 0x5587] Error opening input: No such file or directory
Error opening input file input.mp4.
`
	msg := Classify(diag)
	assert.Contains(t, msg, "Error opening input")
	assert.NotContains(t, msg, "ffmpeg version")
	assert.NotContains(t, msg, "libavutil")
}

func TestClassifyStripsComponentTags(t *testing.T) {
	diag := "[aac @ 0x7f8e] Invalid bitrate 12 bps\n"
	msg := Classify(diag)
	assert.Equal(t, "Invalid bitrate 12 bps", msg)
}

func TestClassifyKnownSignatureForOddDimensions(t *testing.T) {
	diag := banner + `[libx264 @ 0x5643] height not divisible by 2 (640x361)
`
	msg := Classify(diag)
	assert.Contains(t, msg, "divisible by 2")
}

func TestClassifyFallsBackToTail(t *testing.T) {
	diag := banner + `something unexpected happened here
and then the process gave up
`
	msg := Classify(diag)
	assert.Contains(t, msg, "gave up")
}

func TestClassifyStripsProgressCounters(t *testing.T) {
	diag := banner + `frame=  240 fps= 48 q=28.0 size=    1024KiB time=00:00:10.00 bitrate= 838.9kbits/s speed=   2x
[matroska @ 0x55] Could not write header
`
	msg := Classify(diag)
	assert.Contains(t, msg, "Could not write header")
	assert.NotContains(t, msg, "fps=")
}

func TestClassifyNeverEmpty(t *testing.T) {
	for _, diag := range []string{"", "\n\n", banner} {
		msg := Classify(diag)
		assert.NotEmpty(t, msg)
		assert.False(t, strings.HasPrefix(msg, "ffmpeg version"))
	}
}
