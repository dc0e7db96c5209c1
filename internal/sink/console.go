package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/rickgao/vessel-tracker/internal/model"
)

const boxWidth = 46

// Console renders updates as boxed blocks on a terminal.
type Console struct {
	mu sync.Mutex
	w  io.Writer

	title  *color.Color
	label  *color.Color
	warn   *color.Color
	header *color.Color
}

// NewConsole creates a Console sink writing to w. Pass color.Output for a
// colour-aware stdout.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:      w,
		title:  color.New(color.FgHiCyan, color.Bold),
		label:  color.New(color.FgHiBlue),
		warn:   color.New(color.FgYellow),
		header: color.New(color.FgHiMagenta, color.Bold),
	}
}

func (c *Console) OnUpdate(event model.StatusEvent) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(c.title.Sprint(boxTop(" VESSEL UPDATE ")))
	b.WriteString("\n")
	c.row(&b, "Vessel", event.Name)
	c.row(&b, "MMSI", event.VesselID)
	c.row(&b, "Position", event.Update.Position.String())
	c.row(&b, "Speed", model.FormatOptional(event.Update.SpeedOverGround)+" knots")
	c.row(&b, "Course", model.FormatOptional(event.Update.CourseOverGround)+"°")
	c.row(&b, "Status", event.StatusLabel)
	c.row(&b, "Updates", fmt.Sprintf("%d", event.MessageCount))
	c.row(&b, "Time", event.Update.ObservedAt)
	b.WriteString(c.title.Sprint("╚" + strings.Repeat("═", boxWidth) + "╝"))
	b.WriteString("\n")

	c.write(b.String())
}

func (c *Console) OnError(message string) {
	c.write(c.warn.Sprintf("⚠️  %s\n", message))
}

func (c *Console) OnPeriodicStatus(snapshot []model.VesselState) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(c.header.Sprint("=== Tracking Status Update ==="))
	b.WriteString("\n")
	for _, st := range snapshot {
		fmt.Fprintf(&b, "%s (MMSI: %s)\n", st.Ref.DisplayName, st.Ref.ID)
		fmt.Fprintf(&b, "   Messages received: %d\n", st.MessageCount)
		fmt.Fprintf(&b, "   Last update: %s\n", st.LastUpdate())
	}
	b.WriteString(c.header.Sprint(strings.Repeat("=", 32)))
	b.WriteString("\n")

	c.write(b.String())
}

func (c *Console) row(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "║ %s %s\n", c.label.Sprintf("%-9s", name+":"), value)
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

func boxTop(title string) string {
	pad := boxWidth - len([]rune(title))
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	return "╔" + strings.Repeat("═", left) + title + strings.Repeat("═", pad-left) + "╗"
}
