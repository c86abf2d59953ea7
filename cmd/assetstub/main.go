// Command assetstub serves a directory of document fixtures over HTTP for
// local runs of docsections. DELAY slows every response, FAIL_PREFIX makes
// matching paths answer 500.
package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8090"
	}
	dir := os.Getenv("DIR")
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	var delay time.Duration
	if s := os.Getenv("DELAY"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			log.Fatal().Err(err).Str("delay", s).Msg("bad DELAY")
		}
		delay = d
	}

	log.Info().Str("addr", addr).Str("dir", dir).Dur("delay", delay).Msg("asset stub listening")
	srv := &http.Server{Addr: addr, Handler: newHandler(dir, delay, os.Getenv("FAIL_PREFIX")), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

func newHandler(dir string, delay time.Duration, failPrefix string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failPrefix != "" && strings.HasPrefix(r.URL.Path, failPrefix) {
			http.Error(w, "stub failure", http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(strings.ToLower(r.URL.Path), ".pdf") {
			w.Header().Set("Content-Type", "application/pdf")
		}
		log.Debug().Str("path", r.URL.Path).Msg("serve")
		files.ServeHTTP(w, r)
	})
}
