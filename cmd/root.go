package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/qdispatch/sim"
	"github.com/inference-sim/qdispatch/sim/backend"
	"github.com/inference-sim/qdispatch/sim/estimator"
	"github.com/inference-sim/qdispatch/sim/partition"
	"github.com/inference-sim/qdispatch/sim/pipeline"
	"github.com/inference-sim/qdispatch/sim/qjson"
)

// options collects the flags of every subcommand. Each root command owns
// its own copy so tests can run commands repeatedly.
type options struct {
	env *EnvConfig

	logLevel         string // Log verbosity level
	envFile          string // .env file seeding QDISPATCH_* variables
	coefficientsPath string // Estimator coefficient table (YAML)

	circuitPath   string   // Circuit document (JSON)
	configPath    string   // Execution configuration document (JSON)
	simulators    []string // Candidate override, type:method
	maxSimulators int      // Selection attempt cap
	printMetrics  bool     // Print gathered metrics after run

	optimiser  string // Partition optimiser name
	partitions int    // Number of equal partitions
	steps      int    // Optimiser step budget
	seed       int64  // Optimiser seed
}

// NewRootCmd builds the qdispatch command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "qdispatch",
		Short:         "Dispatch quantum circuits to the best-fitting simulation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&o.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	root.PersistentFlags().StringVar(&o.envFile, "env-file", ".env", "File of QDISPATCH_* defaults, ignored if missing")
	root.PersistentFlags().StringVar(&o.coefficientsPath, "coefficients", "", "Estimator coefficient table (default: embedded)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a circuit document and print the result document",
		RunE:  o.run,
	}
	runCmd.Flags().StringVar(&o.circuitPath, "circuit", "", "Circuit document (JSON)")
	runCmd.Flags().StringVar(&o.configPath, "config", "", "Execution configuration document (JSON)")
	runCmd.Flags().StringSliceVar(&o.simulators, "simulators", nil, "Candidate list, e.g. qcsim:statevector,composite-qcsim:statevector")
	runCmd.Flags().IntVar(&o.maxSimulators, "max-simulators", 0, "Maximum selection attempts (0: one per candidate)")
	runCmd.Flags().BoolVar(&o.printMetrics, "print-metrics", false, "Print dispatcher metrics to stderr after the run")

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "Rank every backend/method pair by predicted time for a circuit",
		RunE:  o.estimate,
	}
	estimateCmd.Flags().StringVar(&o.circuitPath, "circuit", "", "Circuit document (JSON)")

	partitionCmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition a circuit's qubits and print the cut counts and qubit map",
		RunE:  o.partition,
	}
	partitionCmd.Flags().StringVar(&o.circuitPath, "circuit", "", "Circuit document (JSON)")
	partitionCmd.Flags().StringVar(&o.optimiser, "optimiser", partition.Greedy, "Optimiser: "+strings.Join(partition.ValidOptimiserNames(), ", "))
	partitionCmd.Flags().IntVar(&o.partitions, "partitions", qjson.DefaultPartitions, "Number of equal partitions")
	partitionCmd.Flags().IntVar(&o.steps, "steps", qjson.DefaultOptimiserSteps, "Optimiser step budget")
	partitionCmd.Flags().Int64Var(&o.seed, "seed", 42, "Optimiser seed")

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "List backend and method names and which pairs are available",
		RunE:  o.backends,
	}

	root.AddCommand(runCmd, estimateCmd, partitionCmd, backendsCmd)
	return root
}

// Execute runs the CLI root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func (o *options) setup(cmd *cobra.Command) error {
	env, err := LoadEnvConfig(o.envFile)
	if err != nil {
		return err
	}
	o.env = env

	level := env.LogLevel
	if cmd.Flags().Changed("log") {
		level = o.logLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	logrus.SetLevel(lvl)

	if !cmd.Flags().Changed("coefficients") {
		o.coefficientsPath = env.CoefficientsPath
	}
	if !cmd.Flags().Changed("max-simulators") {
		o.maxSimulators = env.MaxSimulators
	}
	return nil
}

func (o *options) timeEstimator() (sim.TimeEstimator, error) {
	if o.coefficientsPath == "" {
		return sim.NewDefaultTimeEstimator()
	}
	logrus.Infof("Loading estimator coefficients from %s", o.coefficientsPath)
	return estimator.NewFromFile(o.coefficientsPath)
}

func (o *options) loadCircuit() (*sim.Circuit, error) {
	data, err := readFile(o.circuitPath, "circuit")
	if err != nil {
		return nil, err
	}
	return qjson.ParseCircuit(data)
}

func (o *options) run(cmd *cobra.Command, _ []string) error {
	c, err := o.loadCircuit()
	if err != nil {
		return err
	}
	cfg := qjson.DefaultExecConfig()
	if o.configPath != "" {
		data, err := readFile(o.configPath, "configuration")
		if err != nil {
			return err
		}
		if cfg, err = qjson.ParseExecConfig(data); err != nil {
			return err
		}
	}
	if cfg.Seed == nil {
		if cfg.Seed, err = o.env.SeedValue(); err != nil {
			return err
		}
	}
	if len(o.simulators) > 0 {
		cfg.Simulators = cfg.Simulators[:0]
		for _, s := range o.simulators {
			cand, err := qjson.ParseCandidate(s)
			if err != nil {
				return err
			}
			cfg.Simulators = append(cfg.Simulators, cand)
		}
	}

	est, err := o.timeEstimator()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	app := pipeline.NewApp(nil, est, sim.NewMetrics(reg))
	app.MaxSimulators = o.maxSimulators
	if cfg.Seed != nil {
		app.SetSeed(*cfg.Seed)
	}

	s := pipeline.New(app, c.NumQubits)
	defer s.Close()
	counts, err := s.Execute(c, cfg)
	if err != nil {
		return err
	}
	out, err := qjson.EncodeResult(counts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if o.printMetrics {
		return printMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}

func (o *options) estimate(cmd *cobra.Command, _ []string) error {
	c, err := o.loadCircuit()
	if err != nil {
		return err
	}
	est, err := o.timeEstimator()
	if err != nil {
		return err
	}
	shape := c.Shape()
	ranked, _ := sim.NewSelector(sim.NewRegistry(nil, nil), est, nil).Rank(sim.AllCandidates(), shape)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "qubits=%d gates=%d two_qubit=%d measurements=%d component_width=%d\n",
		shape.NumQubits, shape.NumGates, shape.NumTwoQubitGates, shape.NumMeasurements, shape.MaxComponentWidth)
	fmt.Fprintln(w, "BACKEND\tMETHOD\tESTIMATE_S\tAVAILABLE")
	for _, r := range ranked {
		estimate := "unknown"
		if r.Time != sim.EstimateUnknown {
			estimate = fmt.Sprintf("%.6g", r.Time)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.Type, r.Method, estimate, backend.Supported(r.Type, r.Method))
	}
	return w.Flush()
}

func (o *options) partition(cmd *cobra.Command, _ []string) error {
	if !partition.IsValidOptimiser(o.optimiser) {
		return fmt.Errorf("unknown optimiser %q; valid: %s", o.optimiser, strings.Join(partition.ValidOptimiserNames(), ", "))
	}
	if o.partitions < 1 || o.steps < 0 {
		return fmt.Errorf("partitions must be >= 1 and steps >= 0, got %d and %d", o.partitions, o.steps)
	}
	c, err := o.loadCircuit()
	if err != nil {
		return err
	}
	rng := sim.NewPartitionedRNG(o.seed).ForSubsystem(sim.SubsystemOptimiser)
	opt := partition.NewOptimiser(o.optimiser, rng)
	opt.SetNetworkAndCircuit(partition.EqualNetwork(c.NumQubits, o.partitions), c)
	before := opt.GetNumCuts()
	after := opt.Optimise(o.steps)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "optimiser: %s\n", opt.Name())
	fmt.Fprintf(out, "cuts: %d -> %d\n", before, after)
	fmt.Fprintf(out, "assignment: %v\n", opt.Assignment())
	pairs := make([]string, 0, c.NumQubits)
	for q := 0; q < c.NumQubits; q++ {
		pairs = append(pairs, fmt.Sprintf("%d->%d", q, opt.TranslateQubitFromOriginal(q)))
	}
	fmt.Fprintf(out, "qubit map: %s\n", strings.Join(pairs, " "))
	return nil
}

func (o *options) backends(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tMETHOD\tAVAILABLE")
	for _, c := range sim.AllCandidates() {
		fmt.Fprintf(w, "%s\t%s\t%t\n", c.Type, c.Method, backend.Supported(c.Type, c.Method))
	}
	return w.Flush()
}

// printMetrics writes every gathered sample as "name{labels} value".
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Dispatcher Metrics ===")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			fmt.Fprintf(w, "%s %g\n", name, v)
		}
	}
	return nil
}
