// Command upstream_probe smoke-tests the EMIS backend contract the
// gateway depends on: the token endpoints, the profile endpoint and the
// academic-record aggregates. Run it against a staging backend before
// pointing the gateway at a new deployment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

type probeResult struct {
	Name     string
	Status   int
	Err      error
	Duration time.Duration
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8000", "EMIS backend base URL")
	username := flag.String("username", "", "probe account username")
	password := flag.String("password", "", "probe account password")
	student := flag.String("student", "", "optional student username to probe record endpoints with")
	timeout := flag.Duration("timeout", 15*time.Second, "per-request timeout")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: upstream_probe -base-url URL -username USER -password PASS [-student USERNAME]")
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	results := make([]probeResult, 0, 6)

	pair, res := login(client, *baseURL, *username, *password)
	results = append(results, res)

	if res.Err == nil {
		results = append(results, postJSON(client, "token verify", *baseURL+"/token/verify/", "", map[string]string{"token": pair.Access}))
		results = append(results, getJSON(client, "profile", *baseURL+"/users/me/", pair.Access, nil))

		refreshed := struct {
			Access string `json:"access"`
		}{}
		results = append(results, postJSONInto(client, "token refresh", *baseURL+"/token/refresh/", "", map[string]string{"refresh": pair.Refresh}, &refreshed))

		if *student != "" {
			profile := struct {
				ID string `json:"id"`
			}{}
			studentRes := getJSONInto(client, "student lookup", *baseURL+"/student/id/"+*student, pair.Access, &profile)
			results = append(results, studentRes)
			if studentRes.Err == nil && profile.ID != "" {
				bundle := struct {
					AverageCGPA      float64 `json:"average_cgpa"`
					TotalCreditHours float64 `json:"total_credit_hours"`
				}{}
				recordsURL := fmt.Sprintf("%s/academy/students/%s/academic-records/", *baseURL, profile.ID)
				results = append(results, getJSONInto(client, "academic records", recordsURL, pair.Access, &bundle))
			}
		}

		results = append(results, postJSON(client, "logout", *baseURL+"/logout/", "", map[string]string{"refresh": pair.Refresh}))
	}

	failed := 0
	for _, r := range results {
		mark := "ok"
		if r.Err != nil {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("%-18s %-4s status=%d duration=%s", r.Name, mark, r.Status, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Printf(" error=%v", r.Err)
		}
		fmt.Println()
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d probes failed\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Printf("\nall %d probes passed\n", len(results))
}

func login(client *http.Client, baseURL, username, password string) (tokenPair, probeResult) {
	var pair tokenPair
	res := postJSONInto(client, "login", baseURL+"/token/", "", map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	if res.Err == nil && (pair.Access == "" || pair.Refresh == "") {
		res.Err = fmt.Errorf("token pair missing in response")
	}
	return pair, res
}

func postJSON(client *http.Client, name, url, token string, body interface{}) probeResult {
	return postJSONInto(client, name, url, token, body, nil)
}

func postJSONInto(client *http.Client, name, url, token string, body, out interface{}) probeResult {
	raw, err := json.Marshal(body)
	if err != nil {
		return probeResult{Name: name, Err: err}
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return probeResult{Name: name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return send(client, name, req, token, out)
}

func getJSON(client *http.Client, name, url, token string, out interface{}) probeResult {
	return getJSONInto(client, name, url, token, out)
}

func getJSONInto(client *http.Client, name, url, token string, out interface{}) probeResult {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return probeResult{Name: name, Err: err}
	}
	return send(client, name, req, token, out)
}

func send(client *http.Client, name string, req *http.Request, token string, out interface{}) probeResult {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return probeResult{Name: name, Err: err, Duration: duration}
	}
	defer res.Body.Close()

	result := probeResult{Name: name, Status: res.StatusCode, Duration: duration}
	if res.StatusCode >= 400 {
		result.Err = fmt.Errorf("unexpected status %d", res.StatusCode)
		return result
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			result.Err = fmt.Errorf("decode response: %w", err)
		}
	}
	return result
}
