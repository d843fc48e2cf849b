package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/musterdev/muster/internal/types"
)

var (
	statusColors = map[types.Status]*color.Color{
		types.StatusPending:    color.New(color.FgYellow),
		types.StatusInProgress: color.New(color.FgCyan),
		types.StatusDone:       color.New(color.FgGreen),
		types.StatusCancelled:  color.New(color.FgHiBlack),
	}
	priorityColors = map[types.Priority]*color.Color{
		types.PriorityUrgent: color.New(color.FgRed, color.Bold),
		types.PriorityHigh:   color.New(color.FgRed),
		types.PriorityLow:    color.New(color.FgHiBlack),
		types.PriorityMaybe:  color.New(color.FgHiBlack),
	}
)

func statusLabel(s types.Status) string {
	if s == "" {
		s = types.StatusPending
	}
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}

func priorityLabel(p types.Priority) string {
	if p == "" {
		p = types.PriorityMedium
	}
	if c, ok := priorityColors[p]; ok {
		return c.Sprint(string(p))
	}
	return string(p)
}

// printPlanLine renders one plan as a single status line.
func printPlanLine(p *types.Plan) {
	done, total := p.CountDoneTasks()
	marker := ""
	if p.Epic {
		marker = color.New(color.FgMagenta).Sprint(" [epic]")
	}
	progress := ""
	if total > 0 {
		progress = fmt.Sprintf(" (%d/%d)", done, total)
	}
	tags := ""
	if len(p.Tags) > 0 {
		tags = " #" + strings.Join(p.Tags, " #")
	}
	fmt.Printf("%4d  %-12s %-8s %s%s%s%s\n",
		p.ID, statusLabel(p.Status), priorityLabel(p.Priority), p.Title, marker, progress, tags)
}

func printPlansJSON(plans []*types.Plan) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if plans == nil {
		plans = []*types.Plan{}
	}
	_ = enc.Encode(plans)
}
