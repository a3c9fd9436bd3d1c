package whisper

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// audioLayout maps a time offset to a byte position in a PCM WAV file.
type audioLayout struct {
	fileSize   int64
	dataOffset int64
	byteRate   int64
}

// Fallback for 16 kHz mono 16-bit with a canonical 44-byte header.
var defaultLayout = audioLayout{dataOffset: 44, byteRate: 16000 * 2}

func readLayout(path string) (audioLayout, error) {
	f, err := os.Open(path)
	if err != nil {
		return audioLayout{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return audioLayout{}, err
	}

	layout := defaultLayout
	layout.fileSize = fi.Size()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return layout, fmt.Errorf("%s is not a PCM WAV file", path)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return layout, err
	}

	if dec.AvgBytesPerSec > 0 {
		layout.byteRate = int64(dec.AvgBytesPerSec)
	} else if dec.SampleRate > 0 && dec.NumChans > 0 && dec.BitDepth > 0 {
		layout.byteRate = int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
	}
	if err := dec.FwdToPCM(); err == nil {
		if off := layout.fileSize - dec.PCMLen(); off >= 0 {
			layout.dataOffset = off
		}
	}
	return layout, nil
}

// ratioAt estimates how far through the file the reader is once offset t of
// audio has been consumed.
func (l audioLayout) ratioAt(t time.Duration) float64 {
	if l.fileSize <= 0 {
		return 0
	}
	pos := l.dataOffset + int64(t.Seconds()*float64(l.byteRate))
	return float64(pos) / float64(l.fileSize)
}
