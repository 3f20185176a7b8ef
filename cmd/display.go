package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"sleepywoodpecker/freq-monitor/internal/processing"
)

var (
	runningColor = color.New(color.FgGreen, color.Bold)
	pausedColor  = color.New(color.FgYellow, color.Bold)
	idleColor    = color.New(color.FgRed, color.Bold)
	closedColor  = color.New(color.FgHiBlack)
	recordColor  = color.New(color.FgRed)
)

type statusPrinter struct {
	out io.Writer
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out}
}

func stateLabel(s processing.State) string {
	label := fmt.Sprintf("[%s]", s)
	switch s {
	case processing.Running:
		return runningColor.Sprint(label)
	case processing.Paused:
		return pausedColor.Sprint(label)
	case processing.Idle:
		return idleColor.Sprint(label)
	default:
		return closedColor.Sprint(label)
	}
}

func formatStatus(st processing.Status) string {
	latest := "-"
	if st.HasLatest {
		latest = strconv.Itoa(st.Latest) + " Hz"
	}

	line := fmt.Sprintf("%s %s samples=%d latest=%s", stateLabel(st.State), st.Session, st.Samples, latest)
	if st.Recording != "" {
		line += " " + recordColor.Sprint("REC ") + st.Recording
	}
	if st.Err != nil {
		line += fmt.Sprintf(" error=%q (type 'open' to reconnect)", st.Err.Error())
	}
	return line
}

func (p *statusPrinter) Print(st processing.Status) {
	fmt.Fprintln(p.out, formatStatus(st))
}
