// mpcdemo runs one SQP solve of the double-integrator regulation
// problem from package examples end to end, optionally serving the
// solve's diagnostics over the package report websocket/HTTP surface.
// Flag-based configuration and runtime.NumCPU() default thread count
// follow the teacher's main.go.
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"

	"msqp/examples"
	"msqp/ocp"
	"msqp/ocpconfig"
	"msqp/report"
	"msqp/sqp"
)

var (
	configPath *string
	nThreads   *int
	serve      *bool
	addr       *string
	horizon    *float64
	feedback   *bool
)

func init() {
	configPath = flag.String("config", "", "path to a YAML config file overlaying the defaults")
	nThreads = flag.Int("nthreads", runtime.NumCPU(), "number of assembly/evaluation worker threads")
	serve = flag.Bool("serve", false, "serve the diagnostics http/websocket endpoint after solving")
	addr = flag.String("addr", ":8080", "diagnostics server listen address")
	horizon = flag.Float64("horizon", 5.0, "time horizon in seconds")
	feedback = flag.Bool("feedback", true, "emit a Riccati feedback controller instead of feedforward")
	flag.Parse()
}

func loadConfig() (ocpconfig.Config, error) {
	if *configPath == "" {
		cfg := ocpconfig.Default()
		cfg.NThreads = *nThreads
		cfg.ControllerFeedback = *feedback
		return cfg, nil
	}
	return ocpconfig.FromYaml(*configPath)
}

func runDemo() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	recorder := report.NewRecorder()

	problem := sqp.Problem{
		Dynamics:  examples.DoubleIntegrator{},
		Cost:      examples.RegulationCost{QState: []float64{1, 1}, RInput: 0.1},
		Operating: examples.HoldLastOperating{},
	}

	driver := sqp.NewDriver(cfg, problem)
	defer driver.Close()

	initState := ocp.NewVector(2)
	initState.SetVec(0, 1)
	initState.SetVec(1, 0)

	solution, err := driver.Solve(0, initState, *horizon)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	iterLog, logErr := driver.GetIterationsLog()
	if logErr == nil {
		for i, pi := range iterLog {
			recorder.Publish(pi)
			fmt.Printf("iter %2d: cost=%.6f merit=%.6f violation=%.6f\n", i, pi.TotalCost, pi.Merit, pi.ViolationNorm())
		}
	}

	bench := driver.Benchmark()
	recorder.PublishBenchmark(bench)
	fmt.Print(bench.Report())

	fmt.Printf("solved over %d nodes, final state [%.4f %.4f]\n",
		len(solution.X)-1, solution.X[len(solution.X)-1].AtVec(0), solution.X[len(solution.X)-1].AtVec(1))

	if *serve {
		srv := report.NewServer(*addr, recorder)
		fmt.Printf("serving diagnostics on %s\n", *addr)
		return srv.Serve()
	}
	return nil
}

func main() {
	if err := runDemo(); err != nil {
		log.Fatal(err)
	}
}
