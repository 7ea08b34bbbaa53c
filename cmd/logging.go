package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
)

var levelPrefixes = []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"}

// levelWriter drops log lines tagged below the configured level
type levelWriter struct {
	out     io.Writer
	dropped [][]byte
}

func newLevelWriter(out io.Writer, level string) *levelWriter {
	w := &levelWriter{out: out}
	min := 1
	for i, p := range levelPrefixes {
		if strings.EqualFold(strings.Trim(p, "[]"), level) {
			min = i
		}
	}
	for _, p := range levelPrefixes[:min] {
		w.dropped = append(w.dropped, []byte(p))
	}
	return w
}

func (w *levelWriter) Write(p []byte) (int, error) {
	for _, prefix := range w.dropped {
		if bytes.Contains(p, prefix) {
			return len(p), nil
		}
	}
	return w.out.Write(p)
}

func setupLogging(level string) {
	log.SetOutput(newLevelWriter(os.Stderr, level))
}
