package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	buf := &bytes.Buffer{}
	b := newProgressBar(buf)

	b.Update(50, 100)
	if got := buf.String(); !strings.Contains(got, " 50.0%") || !strings.Contains(got, strings.Repeat("#", barWidth/2)+strings.Repeat(".", barWidth/2)) {
		t.Errorf("Bad half way bar %q", got)
	}

	// Redraws are throttled, except for the final one.
	buf.Reset()
	b.Update(60, 100)
	if buf.Len() != 0 {
		t.Errorf("Throttled update drew %q", buf.String())
	}
	b.Update(100, 100)
	if got := buf.String(); !strings.Contains(got, "100.0%") {
		t.Errorf("Final update drew %q", got)
	}

	b.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("Finish did not end the line")
	}
}

func TestNilProgressBar(t *testing.T) {
	var b *progressBar
	b.Update(1, 2)
	b.Finish()
}
