/*
Copyright © 2024 Dave Rawks <dave@rawks.io>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logs "github.com/appscode/go/log/golog"
	"github.com/appscode/go/runtime"
	"github.com/kestrelco/dispatchling/engine"
	"github.com/kestrelco/dispatchling/engine/diag"
	"github.com/kestrelco/dispatchling/engine/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type workerConfig struct {
	ServerAddr  string
	Concurrency int
	Timeout     time.Duration
	DiagAddr    string
}

var workerCfg workerConfig

var workerCmd = &cobra.Command{
	Use:   "worker [flags] <function-name> <executor>",
	Short: "Register a function and execute its jobs with an external command",
	Long: `Registers function-name against the dispatch server and executes every
assigned job by running executor as a child process.

The job's workload is written to the child's stdin, and the worker reads
newline-delimited JSON events off the child's stdout as the job runs:

  {"type":"progress","numerator":1,"denominator":4}
  {"type":"update","data":{"rows":12}}
  {"type":"print","content":"starting pass 2"}
  {"type":"complete","data":{"rows":48},"error":null}

A job that exceeds --timeout is killed and reported back as failed; a
child that exits non-zero without emitting its own "complete" event is
reported the same way.

Examples:
  dispatchling worker resize /usr/local/bin/resize-worker
  dispatchling worker --concurrency 8 --timeout 30s render /opt/bin/render
  dispatchling worker --diag-addr :9090 ocr /opt/bin/ocr-worker`,
	Args: cobra.ExactArgs(2),
	PersistentPreRun: func(c *cobra.Command, args []string) {
		c.Flags().VisitAll(func(flag *pflag.Flag) {
			log.Printf("FLAG: --%s=%q", flag.Name, flag.Value)
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		logs.InitLogs()
		defer logs.FlushLogs()
		defer runtime.HandleCrash()
		runWorker(args[0], args[1])
	},
}

func runWorker(fn, executor string) {
	recorder := metrics.NewRecorder()

	eng, err := engine.Create(workerCfg.ServerAddr)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	eng.WithMetrics(recorder)

	if workerCfg.DiagAddr != "" {
		mux := diag.NewMux(eng, fn)
		go func() {
			log.Printf("diagnostics listening on %s", workerCfg.DiagAddr)
			if err := http.ListenAndServe(workerCfg.DiagAddr, mux); err != nil {
				log.Printf("diagnostics server stopped: %v", err)
			}
		}()
	}

	if err := eng.StartWorker(fn, executor, workerCfg.Concurrency, workerCfg.Timeout); err != nil {
		log.Fatalf("failed to start worker %q: %v", fn, err)
	}
	log.Printf("worker %q started, concurrency=%d timeout=%s", fn, workerCfg.Concurrency, workerCfg.Timeout)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("shutdown requested, draining in-flight jobs...")
	eng.Shutdown()
	log.Println("worker stopped")
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVar(&workerCfg.ServerAddr, "server", "127.0.0.1:4730", "dispatch server address")
	workerCmd.Flags().IntVar(&workerCfg.Concurrency, "concurrency", 4, "maximum number of jobs to run at once")
	workerCmd.Flags().DurationVar(&workerCfg.Timeout, "timeout", 0, "per-job wall clock limit (0 disables it)")
	workerCmd.Flags().StringVar(&workerCfg.DiagAddr, "diag-addr", "", "address to serve /healthz and /metrics on (disabled if empty)")
}
