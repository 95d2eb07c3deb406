package graphflow

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// EventFormatter renders workflow events for humans.
type EventFormatter interface {
	PrintEvent(event Event)
}

// ConsoleEventFormatter writes colorized event lines to a writer, with color
// disabled automatically when the writer is not a terminal.
type ConsoleEventFormatter struct {
	writer    io.Writer
	stepColor *color.Color
	okColor   *color.Color
	errColor  *color.Color
	infoColor *color.Color
}

// NewConsoleEventFormatter creates a formatter writing to stdout.
func NewConsoleEventFormatter() *ConsoleEventFormatter {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	return &ConsoleEventFormatter{
		writer:    os.Stdout,
		stepColor: color.New(color.FgCyan),
		okColor:   color.New(color.FgGreen),
		errColor:  color.New(color.FgRed),
		infoColor: color.New(color.FgYellow),
	}
}

func (f *ConsoleEventFormatter) PrintEvent(event Event) {
	switch e := event.(type) {
	case SuperStepCompletedEvent:
		line := fmt.Sprintf("step %d: %d messages queued", e.SuperStep, e.QueuedMessages)
		if e.Checkpoint != nil {
			line += fmt.Sprintf(" (checkpoint %s)", e.Checkpoint.CheckpointID)
		}
		f.stepColor.Fprintln(f.writer, line)
	case ExecutorCompletedEvent:
		f.okColor.Fprintf(f.writer, "  %s completed\n", e.ExecutorID)
	case ExecutorFailedEvent:
		f.errColor.Fprintf(f.writer, "  %s failed: %v\n", e.ExecutorID, e.Err)
	case RequestInfoEvent:
		f.infoColor.Fprintf(f.writer, "  %s requested input on port %s (request %s)\n",
			e.Request.ExecutorID, e.Request.Port.PortID, e.Request.RequestID)
	case WorkflowOutputEvent:
		f.okColor.Fprintf(f.writer, "  %s yielded: %v\n", e.ExecutorID, e.Output)
	case WorkflowCompletedEvent:
		f.okColor.Fprintf(f.writer, "run %s completed after %d steps\n", e.RunID, e.SuperSteps)
	case WorkflowFailedEvent:
		f.errColor.Fprintf(f.writer, "run %s failed: %v\n", e.RunID, e.Err)
	default:
		fmt.Fprintf(f.writer, "  %s\n", event.EventType())
	}
}
