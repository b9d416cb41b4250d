// Command parity_check replays a list of read-only API calls against the
// activity-api and the legacy low-code backend it replaces, reporting
// status and body differences. Used during the cutover to verify the two
// systems answer alike before traffic is switched.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Role     string `json:"role"` // staff | student, picks the bearer token
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type result struct {
	Probe        probe
	NewStatus    int
	LegacyStatus int
	StatusMatch  bool
	BodyMatch    bool
	Err          error
}

func main() {
	var (
		newBase      string
		legacyBase   string
		probesPath   string
		staffToken   string
		studentToken string
		timeout      time.Duration
	)

	flag.StringVar(&newBase, "new-base", "http://localhost:8080", "activity-api base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy backend base URL")
	flag.StringVar(&probesPath, "probes", filepath.Join("scripts", "parity_check", "probes.json"), "path to JSON probe list")
	flag.StringVar(&staffToken, "staff-token", os.Getenv("PARITY_STAFF_TOKEN"), "bearer token for staff probes")
	flag.StringVar(&studentToken, "student-token", os.Getenv("PARITY_STUDENT_TOKEN"), "bearer token for student probes")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes, err := loadProbes(probesPath)
	if err != nil {
		log.Fatalf("failed to load probes: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	tokens := map[string]string{"staff": staffToken, "student": studentToken}

	var breaking int
	fmt.Println("Parity Check Report")
	fmt.Println("===================")
	for _, p := range probes {
		res := runProbe(client, newBase, legacyBase, tokens[p.Role], p)
		report(res)
		if p.Critical && (res.Err != nil || !res.StatusMatch || !res.BodyMatch) {
			breaking++
		}
	}

	fmt.Printf("Breaking diffs: %d\n", breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file probeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return file.Probes, nil
}

func runProbe(client *http.Client, newBase, legacyBase, token string, p probe) result {
	res := result{Probe: p}

	newStatus, newBody, err := call(client, newBase, token, p)
	if err != nil {
		res.Err = fmt.Errorf("activity-api request failed: %w", err)
		return res
	}
	legacyStatus, legacyBody, err := call(client, legacyBase, token, p)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.NewStatus = newStatus
	res.LegacyStatus = legacyStatus
	res.StatusMatch = newStatus == legacyStatus
	res.BodyMatch = bodiesEqual(newBody, legacyBody)
	return res
}

func call(client *http.Client, base, token string, p probe) (int, []byte, error) {
	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize collapses whole-valued floats so the two backends' number
// encodings compare equal.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func report(res result) {
	status := "OK"
	if res.Err != nil {
		status = "ERROR"
	} else if !res.StatusMatch || !res.BodyMatch {
		status = "DIFF"
	}
	fmt.Printf("[%s] %s %s\n", status, res.Probe.Method, res.Probe.Path)
	if res.Err != nil {
		fmt.Printf("  Error: %v\n", res.Err)
		return
	}
	fmt.Printf("  activity-api: %d | legacy: %d | body match: %t | critical: %t\n",
		res.NewStatus, res.LegacyStatus, res.BodyMatch, res.Probe.Critical)
}
