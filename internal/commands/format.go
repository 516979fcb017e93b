package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
)

func renderPage(header string, page relations.Page, footer string) string {
	lines := []string{header}
	for _, e := range page.Entries {
		lines = append(lines, fmt.Sprintf("%d. %s(%s)", e.Index, e.PartnerName, e.PartnerID))
	}
	lines = append(lines, footer)
	return strings.Join(lines, "\n")
}

// screenshotLine renders a screenshot reference and reports whether the
// reference is an opaque image the transport should render.
func screenshotLine(prefix string, rec relations.Record) (string, bool) {
	if rec.ScreenshotIsLink() {
		return fmt.Sprintf("%sTreaty screenshot: %s", prefix, rec.Screenshot), false
	}
	return fmt.Sprintf("%sTreaty screenshot: [image] %s", prefix, rec.Screenshot), true
}

func relationChanged(verb string, rec relations.Record) Reply {
	text := fmt.Sprintf("%s: %s(%s) ↔ %s (their diplomat) / %s (our diplomat)",
		verb, rec.PartnerName, rec.PartnerID, rec.TheirDiplomat, rec.OurDiplomat)
	reply := Reply{Text: text}
	if rec.Screenshot != "" {
		line, opaque := screenshotLine("", rec)
		reply.Text += "\n" + line
		if opaque {
			reply.Image = rec.Screenshot
		}
	}
	return reply
}

func relationDetail(rec relations.Record) Reply {
	lines := []string{
		"- Partner name: " + rec.PartnerName,
		"- Group number: " + rec.PartnerID,
		"- Their diplomat: " + rec.TheirDiplomat,
		"- Our diplomat: " + rec.OurDiplomat,
	}
	reply := Reply{}
	if rec.Screenshot != "" {
		line, opaque := screenshotLine("- ", rec)
		lines = append(lines, line)
		if opaque {
			reply.Image = rec.Screenshot
		}
	}
	reply.Text = strings.Join(lines, "\n")
	return reply
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// renderTable draws rows as a borderless text table.
func renderTable(header []string, rows [][]string) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return strings.TrimRight(b.String(), "\n")
}
