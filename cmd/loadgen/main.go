// Command loadgen drives concurrent redemption attempts against a running
// engine to verify the no-lost-updates guarantee under load and measure
// latency. Each worker redeems an unlimited offer for a shared employee;
// afterwards the reported usage count must equal the number of recorded
// attempts exactly.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type result struct {
	total    int64
	recorded int64
	denied   int64
	failed   int64
}

type redeemRequest struct {
	EmployeeID string    `json:"employee_id"`
	Role       string    `json:"role"`
	Offer      offerBody `json:"offer"`
}

type offerBody struct {
	ID                 string  `json:"id"`
	SupplierID         string  `json:"supplier_id"`
	UsageLimit         string  `json:"usage_limit"`
	RedemptionType     string  `json:"redemption_type"`
	DiscountCodeType   string  `json:"discount_code_type"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

type redeemResponse struct {
	Outcome string `json:"outcome"`
	Usage   *struct {
		UsageCount int `json:"usage_count"`
	} `json:"usage"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "engine base URL")
	workers := flag.Int("workers", 50, "concurrent workers")
	rps := flag.Int("rps", 500, "target requests per second")
	duration := flag.Duration("duration", 10*time.Second, "test duration")
	flag.Parse()

	transport := &http.Transport{
		MaxIdleConns:        *workers * 4,
		MaxIdleConnsPerHost: *workers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	offerID := fmt.Sprintf("load-%d", time.Now().UnixNano())
	body := redeemRequest{
		EmployeeID: "load-emp",
		Role:       "employee",
		Offer: offerBody{
			ID:                 offerID,
			SupplierID:         "load-sup",
			UsageLimit:         "unlimited",
			RedemptionType:     "branch",
			DiscountCodeType:   "auto_generated",
			DiscountPercentage: 10,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal request: %v\n", err)
		os.Exit(1)
	}

	burst := *rps / *workers
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(*rps), burst)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	fmt.Printf("driving %d workers at %d rps against %s for %v (offer %s)\n",
		*workers, *rps, *baseURL, *duration, offerID)

	var (
		res       result
		wg        sync.WaitGroup
		latencyMu sync.Mutex
		latencies []time.Duration
	)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				start := time.Now()
				outcome, err := doRedeem(ctx, client, *baseURL, payload)
				elapsed := time.Since(start)

				atomic.AddInt64(&res.total, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&res.failed, 1)
				case outcome == "recorded":
					atomic.AddInt64(&res.recorded, 1)
				default:
					atomic.AddInt64(&res.denied, 1)
				}

				latencyMu.Lock()
				latencies = append(latencies, elapsed)
				latencyMu.Unlock()
			}
		}()
	}
	wg.Wait()

	finalCount, err := fetchUsageCount(client, *baseURL, "load-emp", offerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch final usage: %v\n", err)
	}

	fmt.Println("==========================================")
	fmt.Printf("total     : %d\n", res.total)
	fmt.Printf("recorded  : %d\n", res.recorded)
	fmt.Printf("denied    : %d\n", res.denied)
	fmt.Printf("failed    : %d\n", res.failed)
	fmt.Printf("p50 / p95 : %v / %v\n", percentile(latencies, 0.50), percentile(latencies, 0.95))
	fmt.Printf("final usage count: %d\n", finalCount)
	if int64(finalCount) != res.recorded {
		fmt.Println("LOST UPDATES DETECTED: usage count != recorded attempts")
		os.Exit(1)
	}
	fmt.Println("no lost updates")
}

func doRedeem(ctx context.Context, client *http.Client, baseURL string, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/redemptions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var out redeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Outcome, nil
}

func fetchUsageCount(client *http.Client, baseURL, employeeID, offerID string) (int, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/usage/%s/%s", baseURL, employeeID, offerID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var rec struct {
		UsageCount int `json:"usage_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return 0, err
	}
	return rec.UsageCount, nil
}

func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	idx := int(float64(len(latencies)-1) * p)
	return latencies[idx]
}
