package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"golang.org/x/sync/errgroup"
)

// test-booking races several commuters for the same seats on a running
// server and prints how many bookings each outcome got. Exactly one
// request should succeed per seat set.
func main() {
	var (
		baseURL    string
		tripID     string
		commuters  int
		seat       int
		method     string
		timeoutSec int
	)
	flag.StringVar(&baseURL, "base-url", "http://localhost:8080", "Server base URL")
	flag.StringVar(&tripID, "trip", "", "Trip id to book on (required)")
	flag.IntVar(&commuters, "commuters", 10, "Number of concurrent commuters")
	flag.IntVar(&seat, "seat", 1, "Seat number every commuter asks for")
	flag.StringVar(&method, "payment-method", "card", "Payment method sent with each request")
	flag.IntVar(&timeoutSec, "timeout", 30, "Overall timeout in seconds")
	flag.Parse()

	if tripID == "" {
		log.Fatal("-trip is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	tokens := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 15 * time.Second}
	url := fmt.Sprintf("%s/api/v1/trips/%s/bookings", baseURL, tripID)

	var (
		mu       sync.Mutex
		outcomes = map[string]int{}
	)
	record := func(outcome string) {
		mu.Lock()
		outcomes[outcome]++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < commuters; i++ {
		g.Go(func() error {
			token, err := tokens.GenerateAccessToken(uuid.NewString(), []string{jwt.RoleCommuter}, "")
			if err != nil {
				return err
			}
			outcome, err := book(gctx, client, url, token, seat, method)
			if err != nil {
				record("transport error")
				return nil
			}
			record(outcome)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Trip %s, seat %d, %d commuters\n", tripID, seat, commuters)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, outcomes[k])
	}
	if outcomes["201 CREATED"] > 1 {
		log.Fatal("More than one commuter booked the same seat")
	}
}

// book sends one booking request and returns "<status> <code>"
func book(ctx context.Context, client *http.Client, url, token string, seat int, method string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"seat_numbers": []int{seat},
		"payment":      map[string]string{"payment_method": method},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return "201 CREATED", nil
	}
	var errBody struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	return fmt.Sprintf("%d %s", resp.StatusCode, errBody.Code), nil
}
