package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

// healthprobe hits /healthz and /readyz on a running server and exits
// non-zero when either fails. Intended for container HEALTHCHECK lines
// and CI smoke tests where curl is not available.
func main() {
	var (
		base    = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		timeout = flag.Duration("timeout", 2*time.Second, "per-request timeout")
		ready   = flag.Bool("ready", true, "also check /readyz")
	)
	flag.Parse()

	client := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	paths := []string{"/healthz"}
	if *ready {
		paths = append(paths, "/readyz")
	}

	for _, p := range paths {
		status, body, err := probe(client, *base+p, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			os.Exit(1)
		}
		if status != fasthttp.StatusOK {
			fmt.Fprintf(os.Stderr, "%s: status %d: %s\n", p, status, body)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", p, body)
	}
}

func probe(client *fasthttp.Client, url string, timeout time.Duration) (int, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := client.DoTimeout(req, resp, timeout); err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), string(resp.Body()), nil
}
