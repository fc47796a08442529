package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/model"
)

// monitorCmd is a small operator dashboard over GET /stats. Useful during
// a hackathon to watch connection counts without scraping Prometheus.
func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Live terminal dashboard of connection stats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://localhost:8090",
				Usage: "Base URL of a running server",
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("addr"))
		},
	}
}

func runMonitor(addr string) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("init terminal ui: %w", err)
	}
	defer ui.Close()

	summary := widgets.NewParagraph()
	summary.Title = " " + ServiceName + " "
	summary.SetRect(0, 0, 60, 9)

	chart := widgets.NewBarChart()
	chart.Title = " connections "
	chart.Labels = []string{"total", "organizers", "participants"}
	chart.SetRect(0, 9, 60, 20)
	chart.BarWidth = 12

	render := func() {
		stats, err := fetchStats(addr)
		if err != nil {
			summary.Text = fmt.Sprintf("stats unavailable: %v\n\npress q to quit", err)
			chart.Data = []float64{0, 0, 0}
		} else {
			summary.Text = fmt.Sprintf(
				"total:        %d\norganizers:   %d\nparticipants: %d\nuptime:       %s\n\npress q to quit",
				stats.TotalConnections, stats.Organizers, stats.Participants,
				stats.Uptime.Round(time.Second),
			)
			chart.Data = []float64{
				float64(stats.TotalConnections),
				float64(stats.Organizers),
				float64(stats.Participants),
			}
		}
		ui.Render(summary, chart)
	}

	render()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	events := ui.PollEvents()

	for {
		select {
		case e := <-events:
			if e.ID == "q" || e.ID == "<C-c>" {
				return nil
			}
		case <-ticker.C:
			render()
		}
	}
}

func fetchStats(addr string) (*model.HubStats, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(addr + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var stats model.HubStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
