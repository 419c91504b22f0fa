package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deskrelay-io/deskrelay/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "query":
		cmdQuery(os.Args[2:])
	case "health":
		cmdHealth()
	case "customers":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskrelayctl customers <list|show|history>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdCustomersList(os.Args[3:])
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskrelayctl customers show <id>")
				os.Exit(1)
			}
			cmdCustomersShow(os.Args[3])
		case "history":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskrelayctl customers history <id>")
				os.Exit(1)
			}
			cmdCustomersHistory(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown customers subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskrelayctl tickets <list|create>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList(os.Args[3:])
		case "create":
			cmdTicketsCreate(os.Args[3:])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: deskrelayctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- Commands ---

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	trace := fs.Bool("trace", false, "Show the conversation trace")
	fs.Parse(args)

	run := func(text string) {
		path := "/api/query"
		if *trace {
			path += "?trace=true"
		}
		body, err := apiPost(path, map[string]string{"query": text})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		var resp struct {
			Response string   `json:"response"`
			Resolved bool     `json:"resolved"`
			Log      []string `json:"log"`
		}
		json.Unmarshal(body, &resp)
		fmt.Println(resp.Response)
		if *trace {
			fmt.Println()
			for _, line := range resp.Log {
				fmt.Println("  " + line)
			}
		}
	}

	if fs.NArg() > 0 {
		run(strings.Join(fs.Args(), " "))
		return
	}

	// Interactive mode
	fmt.Println("deskrelayctl interactive mode (type 'quit' to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		run(line)
		fmt.Println()
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdCustomersList(args []string) {
	fs := flag.NewFlagSet("customers list", flag.ExitOnError)
	status := fs.String("status", "active", "Filter by status (active|inactive)")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/api/customers?status=%s&limit=%d", *status, *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var customers []map[string]any
	json.Unmarshal(body, &customers)
	for _, c := range customers {
		fmt.Printf("%-4v %-20v %-30v %v\n", c["id"], c["name"], c["email"], c["status"])
	}
}

func cmdCustomersShow(id string) {
	body, err := apiGet("/api/customers/" + id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdCustomersHistory(id string) {
	body, err := apiGet("/api/customers/" + id + "/history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var tickets []map[string]any
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		fmt.Printf("%-4v %-8v %-8v %v\n", t["id"], t["status"], t["priority"], t["issue"])
	}
}

func cmdTicketsList(args []string) {
	fs := flag.NewFlagSet("tickets list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (open|closed)")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *status != "" {
		query += "&status=" + *status
	}

	body, err := apiGet("/api/tickets" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var tickets []map[string]any
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		fmt.Printf("%-4v %-4v %-8v %-8v %v\n", t["id"], t["customer_id"], t["status"], t["priority"], t["issue"])
	}
}

func cmdTicketsCreate(args []string) {
	fs := flag.NewFlagSet("tickets create", flag.ExitOnError)
	customer := fs.Int64("customer", 0, "Customer ID")
	issue := fs.String("issue", "", "Issue description")
	priority := fs.String("priority", "medium", "Priority (low|medium|high)")
	fs.Parse(args)

	if *customer == 0 || *issue == "" {
		fmt.Fprintln(os.Stderr, "error: --customer and --issue are required")
		os.Exit(1)
	}

	body, err := apiPost("/api/tickets", map[string]any{
		"customer_id": *customer,
		"issue":       *issue,
		"priority":    *priority,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 100, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%v %-5v %v\n", e["time"], e["level"], e["message"])
	}
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", apiBase()+path, nil)
	if err != nil {
		return nil, err
	}
	return apiDo(req)
}

func apiPost(path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", apiBase()+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(req)
}

func apiDo(req *http.Request) ([]byte, error) {
	if key := os.Getenv("DESKRELAY_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func apiBase() string {
	if v := os.Getenv("DESKRELAY_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func printUsage() {
	fmt.Println("deskrelayctl — support engine CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  query [text]              Run a query (interactive if no text; --trace)")
	fmt.Println("  health                    Check daemon health")
	fmt.Println("  customers list            List customers (--status, --limit)")
	fmt.Println("  customers show <id>       Show customer details")
	fmt.Println("  customers history <id>    Show a customer's tickets")
	fmt.Println("  tickets list              List tickets (--status, --limit)")
	fmt.Println("  tickets create            Create a ticket (--customer, --issue, --priority)")
	fmt.Println("  logs                      Tail daemon logs (--level, --limit)")
	fmt.Println("  config validate <path>    Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DESKRELAY_API_URL  Daemon URL (default: http://localhost:8080)")
	fmt.Println("  DESKRELAY_API_KEY  API key for authentication")
}
