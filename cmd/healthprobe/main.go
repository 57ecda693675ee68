// healthprobe is a tiny liveness client for container HEALTHCHECK and CI:
// it issues one GET /healthz against a running server and exits non-zero
// unless the server reports ok.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	target := flag.String("target", "http://127.0.0.1:8080/healthz", "health endpoint URL")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	c := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(*target)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.DoTimeout(req, resp, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "unhealthy: status %d\n", resp.StatusCode())
		os.Exit(1)
	}
	if !strings.Contains(string(resp.Body()), `"ok"`) {
		fmt.Fprintf(os.Stderr, "unhealthy: body %s\n", resp.Body())
		os.Exit(1)
	}
	fmt.Println("ok")
}
