// Command replay prints the persisted transcript, tool calls and trace
// events of a run, fetched over the service API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Service base URL")
	runID := flag.String("run", "", "Run ID to replay")
	showEvents := flag.Bool("events", false, "Also print trace events")
	showTools := flag.Bool("tools", false, "Also print tool calls")
	flag.Parse()

	if *runID == "" {
		log.Fatal("missing -run")
	}
	base := strings.TrimSuffix(*addr, "/")

	var run domain.Run
	if err := fetch(base+"/v1/runs/"+*runID, &run); err != nil {
		log.Fatal("failed to fetch run: ", err)
	}
	fmt.Printf("run %s  team=%s  status=%s", run.RunID, run.TeamID, run.Status)
	if run.StopReason != "" {
		fmt.Printf("  stopped_by=%s", run.StopReason)
	}
	fmt.Println()
	fmt.Printf("task: %s\n\n", run.Task)

	var messages domain.RunMessagesResponse
	if err := fetch(base+"/v1/runs/"+*runID+"/messages", &messages); err != nil {
		log.Fatal("failed to fetch messages: ", err)
	}
	printTranscript(messages.Messages)

	if *showTools {
		var calls struct {
			ToolCalls []domain.ToolCall `json:"tool_calls"`
		}
		if err := fetch(base+"/v1/runs/"+*runID+"/tools", &calls); err != nil {
			log.Fatal("failed to fetch tool calls: ", err)
		}
		fmt.Println()
		printToolCalls(calls.ToolCalls)
	}

	if *showEvents {
		var events domain.RunEventsResponse
		if err := fetch(base+"/v1/runs/"+*runID+"/events", &events); err != nil {
			log.Fatal("failed to fetch events: ", err)
		}
		fmt.Println()
		printEvents(events.Events)
	}
}

func fetch(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printTranscript(messages []domain.Message) {
	rows := make([][]string, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.Seq),
			m.Source,
			truncate(m.Content, 100),
		})
	}
	renderTable([]string{"Seq", "Source", "Content"}, rows)
}

func printToolCalls(calls []domain.ToolCall) {
	rows := make([][]string, 0, len(calls))
	for _, tc := range calls {
		rows = append(rows, []string{tc.ToolName, tc.Participant, string(tc.Status), truncate(tc.Error, 60)})
	}
	renderTable([]string{"Tool", "Participant", "Status", "Error"}, rows)
}

func printEvents(events []domain.Event) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		ts := time.UnixMilli(e.Ts).Format("15:04:05.000")
		rows = append(rows, []string{ts, string(e.Type), truncate(string(e.Payload), 80)})
	}
	renderTable([]string{"Ts", "Type", "Payload"}, rows)
}

func renderTable(header []string, rows [][]string) {
	table := tablewriter.NewTable(os.Stdout)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			log.Fatal("failed to build table: ", err)
		}
	}
	if err := table.Render(); err != nil {
		log.Fatal("failed to render table: ", err)
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
