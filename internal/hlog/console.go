package hlog

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

var levelColors = map[Level]string{
	TraceLevel: "\x1b[32m",
	DebugLevel: "\x1b[36m",
	InfoLevel:  "\x1b[34m",
	WarnLevel:  "\x1b[33m",
	ErrorLevel: "\x1b[31m",
	PanicLevel: "\x1b[31m",
	FatalLevel: "\x1b[31m",
}

const colorReset = "\x1b[0m"

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

type Buffer struct{ buf *bytes.Buffer }

func (b Buffer) Bytes() []byte { return b.buf.Bytes() }
func (b Buffer) Free()         { bufPool.Put(b.buf) }

type Formatter interface {
	Format(Entry) Buffer
}

// ConsoleFormatter renders entries as `LVL| message key=value ...`, with
// ANSI level coloring when color is enabled.
type ConsoleFormatter struct {
	Color bool
}

func NewConsoleFormatter(color bool) *ConsoleFormatter {
	return &ConsoleFormatter{Color: color}
}

func (f *ConsoleFormatter) Format(entry Entry) Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()

	lvl := entry.Level.String()
	if f.Color {
		buf.WriteString(levelColors[entry.Level])
		buf.WriteString(lvl)
		buf.WriteString("|")
		buf.WriteString(colorReset)
	} else {
		buf.WriteString(lvl)
		buf.WriteString("|")
	}
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	for _, field := range entry.Fields {
		buf.WriteByte(' ')
		buf.WriteString(field.Key)
		buf.WriteByte('=')
		fmt.Fprint(buf, field.Value)
	}

	return Buffer{buf}
}

func NewConsole(w io.Writer, color bool) Collector {
	return &console{w: w, fmt: NewConsoleFormatter(color)}
}

type console struct {
	w   io.Writer
	fmt Formatter
}

func (c *console) Write(entry Entry) error {
	buf := c.fmt.Format(entry)
	defer buf.Free()

	_, err := c.w.Write(buf.Bytes())
	if err != nil {
		return err
	}
	_, err = c.w.Write([]byte{'\n'})
	return err
}
