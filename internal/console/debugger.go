package console

import (
	"io"
	"os"

	"github.com/fatih/color"
)

const consoleWidth = 119

// StderrDebugger prints every gateway frame on the console.
type StderrDebugger struct {
	Out io.Writer
}

func NewStderrDebugger() *StderrDebugger {
	return &StderrDebugger{Out: os.Stderr}
}

func (s *StderrDebugger) writeOut(prefix, str string, width int) {
	indent := "    "
	width -= len(indent)

	_, _ = io.WriteString(s.Out, prefix+" ")

	var i int
	for i = 1; i*width < len(str); i++ {
		_, _ = io.WriteString(s.Out, str[(i-1)*width:i*width]+"\n"+indent)
	}

	_, _ = io.WriteString(s.Out, str[(i-1)*width:]+"\n")
}

func (s *StderrDebugger) Incoming(b []byte) {
	s.writeOut(color.CyanString(">>>"), string(b), consoleWidth)
}

func (s *StderrDebugger) Outgoing(b []byte) {
	s.writeOut(color.GreenString("<<<"), string(b), consoleWidth)
}

func (s *StderrDebugger) Error(e error) {
	col := color.New(color.FgBlack, color.BgRed)
	s.writeOut(col.SprintFunc()("ERR"), e.Error(), consoleWidth)
}
