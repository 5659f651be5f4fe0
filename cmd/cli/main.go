package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "pump":
		handlePump(args)
	case "metrics":
		handleMetrics(args)
	case "watch":
		watchPump(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handlePump(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon pump <list|get|create|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listPumps(args[1:])
	case "get":
		getPump(args[1:])
	case "create":
		createPump(args[1:])
	case "delete":
		deletePump(args[1:])
	default:
		fmt.Printf("unknown pump command: %s\n", subCmd)
	}
}

func handleMetrics(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon metrics <current|history|simulate>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "current":
		currentMetrics(args[1:])
	case "history":
		metricsHistory(args[1:])
	case "simulate":
		simulateMetrics(args[1:])
	default:
		fmt.Printf("unknown metrics command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "display name (optional)")

	fs.Parse(args)

	if *username == "" || *email == "" || *password == "" {
		fmt.Println("Error: username, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"username": *username,
		"email":    *email,
		"password": *password,
	}
	if *name != "" {
		payload["name"] = *name
	}

	env, status, err := post("/auth/register", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusCreated {
		fmt.Printf("✗ Registration failed: %s\n", env.Message)
		return
	}

	fmt.Printf("✓ User registered: %s\n", *username)
	if token := sessionToken(env); token != "" {
		saveToken(token)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username or email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	env, status, err := post("/auth/login", map[string]string{
		"username": *username,
		"password": *password,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ Login failed: %s\n", env.Message)
		return
	}

	if token := sessionToken(env); token != "" {
		saveToken(token)
		fmt.Printf("✓ Logged in as: %s\n", *username)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	env, status, err := get("/auth/profile")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Println("Not logged in")
		return
	}

	user := dataObject(env, "user")
	fmt.Printf("✓ Logged in as: %v <%v>\n", user["username"], user["email"])
}

// Pump commands
func listPumps(args []string) {
	_ = args
	env, status, err := get("/pumps")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	pumps, _ := env.Data.(map[string]any)["pumps"].([]any)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLOCATION\tLAST READING")
	for _, p := range pumps {
		pump := p.(map[string]any)
		lastReading := "-"
		if metrics, ok := pump["metrics"].([]any); ok && len(metrics) > 0 {
			lastReading = fmt.Sprintf("%v", metrics[0].(map[string]any)["timestamp"])
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			pump["id"], pump["name"], pump["status"], pump["location"], lastReading)
	}
	w.Flush()
}

func getPump(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon pump get <pump-id>")
		return
	}

	env, status, err := get("/pumps/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	pretty, _ := json.MarshalIndent(dataObject(env, "pump"), "", "  ")
	fmt.Println(string(pretty))
}

func createPump(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "pump name")
	location := fs.String("location", "", "location (optional)")
	minPressure := fs.Float64("min-pressure", 0, "minimum operating pressure in PSI (optional)")
	maxPressure := fs.Float64("max-pressure", 0, "maximum operating pressure in PSI (optional)")
	powerRating := fs.Float64("power-rating", 0, "power rating in kW (optional)")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]any{"name": *name}
	if *location != "" {
		payload["location"] = *location
	}
	if *minPressure > 0 {
		payload["min_pressure"] = *minPressure
	}
	if *maxPressure > 0 {
		payload["max_pressure"] = *maxPressure
	}
	if *powerRating > 0 {
		payload["power_rating"] = *powerRating
	}

	env, status, err := post("/pumps", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusCreated {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	pump := dataObject(env, "pump")
	fmt.Printf("✓ Pump created: %v (id %v)\n", pump["name"], pump["id"])
}

func deletePump(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon pump delete <pump-id>")
		return
	}

	env, status, err := do(http.MethodDelete, "/pumps/"+args[0], nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	fmt.Printf("✓ Pump %s deleted\n", args[0])
}

// Metrics commands
func currentMetrics(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon metrics current <pump-id>")
		return
	}

	env, status, err := get("/metrics/" + args[0] + "/current")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	printReading(dataObject(env, "metrics"))
}

func metricsHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 0, "maximum rows (default 50)")
	hours := fs.Int("hours", 0, "time window in hours (default 24)")

	if len(args) < 1 {
		fmt.Println("Usage: pumpmon metrics history <pump-id> [-limit n] [-hours n]")
		return
	}
	pumpID := args[0]
	fs.Parse(args[1:])

	path := fmt.Sprintf("/metrics/%s/history", pumpID)
	sep := "?"
	if *limit > 0 {
		path += fmt.Sprintf("%slimit=%d", sep, *limit)
		sep = "&"
	}
	if *hours > 0 {
		path += fmt.Sprintf("%shours=%d", sep, *hours)
	}

	env, status, err := get(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	rows, _ := env.Data.(map[string]any)["metrics"].([]any)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tFLOW\tPRESSURE\tTEMP\tPOWER\tEFF\tOPERATING")
	for _, row := range rows {
		m := row.(map[string]any)
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			m["timestamp"], m["flow_rate"], m["pressure"], m["temperature"],
			m["power_consumption"], m["current_efficiency"], m["is_operating"])
	}
	w.Flush()
}

func simulateMetrics(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: pumpmon metrics simulate <pump-id>")
		return
	}

	env, status, err := post("/metrics/"+args[0]+"/simulate", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("✗ %s\n", env.Message)
		return
	}

	printReading(dataObject(env, "metrics"))
}

// watchPump drives the simulate-then-read loop on a ticker until
// interrupted, mirroring what the dashboard does in the browser.
func watchPump(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 5*time.Second, "polling interval")

	if len(args) < 1 {
		fmt.Println("Usage: pumpmon watch <pump-id> [-interval 5s]")
		return
	}
	pumpID := args[0]
	fs.Parse(args[1:])

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Watching pump %s every %s (ctrl-c to stop)\n", pumpID, *interval)
	simulateMetrics([]string{pumpID})

	for {
		select {
		case <-ticker.C:
			simulateMetrics([]string{pumpID})
		case <-sigChan:
			fmt.Println("\nStopped")
			return
		}
	}
}

// envelope mirrors the API response shape
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func printReading(m map[string]any) {
	fmt.Printf("flow %v L/min, pressure %v PSI, temp %v C, power %v kW, efficiency %v%%, operating %v (%v)\n",
		m["flow_rate"], m["pressure"], m["temperature"],
		m["power_consumption"], m["current_efficiency"], m["is_operating"], m["timestamp"])
}

func dataObject(env envelope, key string) map[string]any {
	if data, ok := env.Data.(map[string]any); ok {
		if obj, ok := data[key].(map[string]any); ok {
			return obj
		}
	}
	return map[string]any{}
}

func sessionToken(env envelope) string {
	if data, ok := env.Data.(map[string]any); ok {
		if token, ok := data["token"].(string); ok {
			return token
		}
	}
	return ""
}

// HTTP helpers
func get(path string) (envelope, int, error) {
	return do(http.MethodGet, path, nil)
}

func post(path string, payload any) (envelope, int, error) {
	return do(http.MethodPost, path, payload)
}

func do(method, path string, payload any) (envelope, int, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, 0, err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return envelope{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return envelope{}, 0, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, resp.StatusCode, err
	}
	return env, resp.StatusCode, nil
}

func getAPIURL() string {
	if url := os.Getenv("PUMPMON_API"); url != "" {
		return url
	}
	return "http://localhost:3000/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.pumpmon/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.pumpmon", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Pump Monitoring CLI

Usage:
  pumpmon <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  pump     Pump operations (list, get, create, delete)
  metrics  Metric operations (current, history, simulate)
  watch    Poll simulated readings for a pump on an interval
  help     Show this help message

Environment Variables:
  PUMPMON_API    API endpoint (default: http://localhost:3000/api)

Examples:
  pumpmon auth register -username alice -email alice@example.com -password secret
  pumpmon auth login -username alice -password secret
  pumpmon pump create -name "Main Water Pump" -min-pressure 20 -max-pressure 80
  pumpmon pump list
  pumpmon metrics current 1
  pumpmon watch 1 -interval 10s
`)
}
