package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Kyy487/ruangcerita/logger"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/brianvoe/gofakeit/v7"
)

type Stats struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalDuration   int64
}

type Config struct {
	BaseURL        string
	Workers        int
	Duration       int
	MessageCount   int
	Sessions       int
	RequestsPerSec int
	AdminName      string
	AdminPassword  string
}

var stats Stats

// loadgen drives users and the admin concurrently against a running server.
func main() {
	config := parseFlags()
	logger.Init("development", "info")
	logger.Info().Interface("config", config).Msg("Starting load generator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(config.Duration)*time.Second)
		defer cancel()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	token := ""
	if config.AdminPassword != "" {
		var err error
		token, err = login(client, config)
		if err != nil {
			logger.Fatal().Err(err).Msg("Admin login failed")
		}
	}

	sessions := make([]string, config.Sessions)
	for i := range sessions {
		sessions[i] = gofakeit.UUID()
		if err := setName(client, config.BaseURL, sessions[i], gofakeit.FirstName()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to set display name")
		}
	}

	requestsPerWorker := config.RequestsPerSec / config.Workers
	if requestsPerWorker == 0 {
		requestsPerWorker = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go worker(ctx, i, config, client, sessions, token, requestsPerWorker, &wg)
	}
	go printStats(ctx)

	wg.Wait()
	printFinalStats()
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.BaseURL, "url", "http://localhost:8080", "Chat service URL")
	flag.IntVar(&config.Workers, "workers", 10, "Number of concurrent workers")
	flag.IntVar(&config.Duration, "duration", 60, "Test duration in seconds (0 for infinite)")
	flag.IntVar(&config.MessageCount, "messages", 0, "Total requests to send (0 for infinite)")
	flag.IntVar(&config.Sessions, "sessions", 20, "Number of simulated user sessions")
	flag.IntVar(&config.RequestsPerSec, "rps", 100, "Requests per second target")
	flag.StringVar(&config.AdminName, "admin", "Admin", "Admin name")
	flag.StringVar(&config.AdminPassword, "admin-password", "", "Admin password; admin operations are skipped when empty")

	flag.Parse()
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Sessions <= 0 {
		config.Sessions = 1
	}
	return config
}

func worker(ctx context.Context, id int, config Config, client *http.Client, sessions []string, token string, requestsPerSec int, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(requestsPerSec))
	defer ticker.Stop()

	operations := []string{"send_message", "send_message", "list_messages"}
	if token != "" {
		operations = append(operations, "admin_list", "admin_reply")
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Int("worker", id).Msg("Worker stopping")
			return
		case <-ticker.C:
			if config.MessageCount > 0 && int(atomic.LoadInt64(&stats.TotalRequests)) >= config.MessageCount {
				return
			}

			session := sessions[rand.Intn(len(sessions))]
			start := time.Now()
			var err error

			switch operations[rand.Intn(len(operations))] {
			case "send_message":
				err = do(client, http.MethodPost, config.BaseURL+"/api/v1/chat/messages",
					map[string]string{"text": gofakeit.Sentence(8)}, session, "", http.StatusCreated, nil)
			case "list_messages":
				err = do(client, http.MethodGet, config.BaseURL+"/api/v1/chat/messages", nil, session, "", http.StatusOK, nil)
			case "admin_list":
				err = do(client, http.MethodGet, config.BaseURL+"/api/v1/admin/messages?user=all", nil, "", token, http.StatusOK, nil)
			case "admin_reply":
				err = replyToOldestUnread(client, config.BaseURL, token)
			}

			atomic.AddInt64(&stats.TotalRequests, 1)
			atomic.AddInt64(&stats.TotalDuration, time.Since(start).Milliseconds())
			if err != nil {
				atomic.AddInt64(&stats.FailedRequests, 1)
				logger.Debug().Err(err).Int("worker", id).Msg("Request failed")
			} else {
				atomic.AddInt64(&stats.SuccessRequests, 1)
			}
		}
	}
}

func do(client *http.Client, method, url string, body interface{}, session, token string, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func login(client *http.Client, config Config) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := do(client, http.MethodPost, config.BaseURL+"/api/v1/admin/login",
		map[string]string{"name": config.AdminName, "password": config.AdminPassword}, "", "", http.StatusOK, &resp)
	return resp.Token, err
}

func setName(client *http.Client, baseURL, session, name string) error {
	return do(client, http.MethodPut, baseURL+"/api/v1/chat/name", map[string]string{"name": name}, session, "", http.StatusOK, nil)
}

func replyToOldestUnread(client *http.Client, baseURL, token string) error {
	var state services.ViewState
	if err := do(client, http.MethodGet, baseURL+"/api/v1/admin/messages?user=all", nil, "", token, http.StatusOK, &state); err != nil {
		return err
	}
	for _, m := range state.Messages {
		if m.Replied() {
			continue
		}
		url := fmt.Sprintf("%s/api/v1/admin/messages/%d/reply", baseURL, m.ID)
		return do(client, http.MethodPost, url, map[string]string{"text": gofakeit.Sentence(6)}, "", token, http.StatusOK, nil)
	}
	return nil
}

func printStats(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStats("stats")
		}
	}
}

func logStats(msg string) {
	total := atomic.LoadInt64(&stats.TotalRequests)
	success := atomic.LoadInt64(&stats.SuccessRequests)
	totalDuration := atomic.LoadInt64(&stats.TotalDuration)

	var avgLatency int64
	var successRate float64
	if total > 0 {
		avgLatency = totalDuration / total
		successRate = float64(success) / float64(total) * 100
	}

	logger.Info().
		Int64("total", total).
		Int64("success", success).
		Int64("failed", atomic.LoadInt64(&stats.FailedRequests)).
		Float64("success_rate", successRate).
		Int64("avg_latency_ms", avgLatency).
		Msg(msg)
}

func printFinalStats() {
	logStats("final statistics")
}
