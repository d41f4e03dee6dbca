package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// progressBar redraws a single status line on a terminal.  A nil
// *progressBar draws nothing, for when stderr is not a terminal.
type progressBar struct {
	w        io.Writer
	start    time.Time
	lastDraw time.Time
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, start: time.Now()}
}

const barWidth = 40

func (b *progressBar) Update(done, total uint64) {
	if b == nil {
		return
	}
	now := time.Now()
	if now.Sub(b.lastDraw) < 200*time.Millisecond && done < total {
		return
	}
	b.lastDraw = now

	frac := 1.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	filled := int(frac * barWidth)

	eta := "?"
	if done > 0 && done < total {
		elapsed := now.Sub(b.start)
		eta = time.Duration(float64(elapsed) * float64(total-done) / float64(done)).Round(time.Second).String()
	}

	fmt.Fprintf(b.w, "\r[%s%s] %5.1f%% eta %s   ", strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), 100*frac, eta)
}

func (b *progressBar) Finish() {
	if b == nil {
		return
	}
	fmt.Fprintln(b.w)
}
