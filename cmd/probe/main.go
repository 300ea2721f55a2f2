// probe generates traffic against a running gateway: normal browsing,
// scanner-style probes and rate floods, then reports the status-code
// distribution it observed.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"time"
)

type Prober struct {
	gatewayURL string
	client     *http.Client
	sourceIP   string
	statuses   map[int]int
	errors     int
}

func NewProber(gatewayURL, sourceIP string) *Prober {
	return &Prober{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		sourceIP:   sourceIP,
		statuses:   make(map[int]int),
	}
}

var normalPaths = []string{
	"/", "/index.html", "/api/users", "/api/products", "/api/orders",
	"/query/search", "/health",
}

var scanPaths = []string{
	"/.env",
	"/.git/config",
	"/wp-admin",
	"/phpinfo.php",
	"/backup.zip",
	"/config.php",
	"/actuator/env",
	"/../../etc/passwd",
}

var injectionQueries = []string{
	"id=1%20union%20select%201",
	"q=%27%20or%20%271%27%3D%271",
	"name=<script>alert(1)</script>",
	"file=php://filter/convert.base64-encode",
}

func (p *Prober) send(path string) {
	req, err := http.NewRequest(http.MethodGet, p.gatewayURL+path, nil)
	if err != nil {
		p.errors++
		return
	}
	if p.sourceIP != "" {
		req.Header.Set("X-Real-IP", p.sourceIP)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.errors++
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	p.statuses[resp.StatusCode]++
}

// RunBrowse issues normal-looking requests at the given rate.
func (p *Prober) RunBrowse(count int, interval time.Duration) {
	for i := 0; i < count; i++ {
		p.send(normalPaths[rand.Intn(len(normalPaths))])
		time.Sleep(interval)
	}
}

// RunScan issues scanner-style probes; the gateway should start denying
// once the suspicious threshold is crossed.
func (p *Prober) RunScan(count int, interval time.Duration) {
	for i := 0; i < count; i++ {
		if i%3 == 2 {
			p.send("/search?" + injectionQueries[rand.Intn(len(injectionQueries))])
		} else {
			p.send(scanPaths[rand.Intn(len(scanPaths))])
		}
		time.Sleep(interval)
	}
}

// RunFlood fires requests as fast as possible to trip the rate limiter.
func (p *Prober) RunFlood(count int) {
	for i := 0; i < count; i++ {
		p.send("/health")
	}
}

func (p *Prober) Report() {
	fmt.Println("status code distribution:")
	codes := make([]int, 0, len(p.statuses))
	for code := range p.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, p.statuses[code])
	}
	if p.errors > 0 {
		fmt.Printf("  transport errors: %d\n", p.errors)
	}
}

func main() {
	gatewayURL := flag.String("gateway", "http://localhost:8080", "gateway base URL")
	scenario := flag.String("scenario", "browse", "browse | scan | flood")
	count := flag.Int("count", 50, "number of requests to send")
	interval := flag.Duration("interval", 100*time.Millisecond, "delay between requests (browse/scan)")
	sourceIP := flag.String("source-ip", "", "value for the X-Real-IP header")
	flag.Parse()

	prober := NewProber(*gatewayURL, *sourceIP)

	fmt.Printf("probing %s: scenario=%s count=%d\n", *gatewayURL, *scenario, *count)

	switch *scenario {
	case "browse":
		prober.RunBrowse(*count, *interval)
	case "scan":
		prober.RunScan(*count, *interval)
	case "flood":
		prober.RunFlood(*count)
	default:
		fmt.Printf("unknown scenario %q\n", *scenario)
		return
	}

	prober.Report()
}
