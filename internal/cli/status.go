package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/strata-labs/strata/internal/daemon"
	"github.com/strata-labs/strata/internal/domain"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status, open campaigns, and open alerts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	base := fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/health")
	if err != nil {
		fmt.Printf("Daemon: not running (%s)\n", base)
		return nil
	}
	resp.Body.Close()
	fmt.Printf("Daemon: running (%s)\n", base)

	var campaigns struct {
		Campaigns []domain.VotingCampaign `json:"campaigns"`
	}
	if err := getJSON(client, base+"/v1/campaigns", &campaigns); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nCAMPAIGN\tTITLE\tSTATUS\tVOTES\tENDS")
	for _, c := range campaigns.Campaigns {
		if c.IsTerminal() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			shortID(c.ID), c.Title, c.Status, c.TotalVotes,
			c.EndTime.Format("2006-01-02 15:04"))
	}
	w.Flush()

	var alerts struct {
		Alerts []domain.EmergencyAlert `json:"alerts"`
	}
	if err := getJSON(client, base+"/v1/alerts", &alerts); err != nil {
		return err
	}

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nALERT\tTITLE\tSEVERITY\tSTATUS\tLEVEL")
	for _, a := range alerts.Alerts {
		if a.IsTerminal() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			shortID(a.ID), a.Title, a.Severity, a.Status,
			a.CurrentLevel, len(a.Chain))
	}
	return w.Flush()
}

func getJSON(client *http.Client, url string, v interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
