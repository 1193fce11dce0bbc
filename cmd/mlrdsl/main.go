// Command mlrdsl is a thin driver that exercises internal/cst end-to-end
// for manual smoke-testing: read a script file and a newline-delimited-JSON
// record stream, build a CST, run begin/main/end over the stream, and write
// emitted records to stdout (spec.md §6, SPEC_FULL.md's "CLI boundary").
//
// Grounded on the teacher's src/main.go "read source -> build -> run stages
// -> write output" shape and util/args.go's hand-rolled switch-driven flag
// parser (no flag-parsing library appears anywhere in the corpus).
//
// Parsing DSL source text into an *ast.Node and building rval.Evaluators
// from expression nodes are both out of this module's scope (spec.md §1):
// those two pieces are supplied by the out-of-scope parser and
// scalar-expression libraries. ParseScript and Collaborators are this
// binary's two injection points for them.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ichobits/miller/internal/cst"
	"github.com/ichobits/miller/internal/dsl/ast"
	"github.com/ichobits/miller/internal/rval"
	"github.com/ichobits/miller/internal/runtime"
)

// ParseScript turns DSL source text into a top-level Program node already
// annotated with Line/Col/Token/Data per ast.Node's contract. Supplied by
// the out-of-scope parser; this default stub reports what's missing rather
// than silently doing nothing.
var ParseScript = func(src string) (*ast.Node, error) {
	return nil, fmt.Errorf("mlrdsl: no parser wired in; this build has no ParseScript implementation")
}

// NewCollaborators returns the rval.Builder/FunctionManager/StringBuilder
// triple the CST builder delegates scalar-expression construction and
// function resolution to. Supplied by the out-of-scope scalar-expression
// evaluator library.
var NewCollaborators = func() cst.Collaborators {
	return cst.Collaborators{
		FunctionManager: stubFunctionManager{},
		Builder: func(n *ast.Node, fmgr rval.FunctionManager, ti rval.TypeInferencing, flags rval.ContextFlags) (rval.Evaluator, error) {
			return nil, fmt.Errorf("mlrdsl: no rval evaluator builder wired in")
		},
		StringBuilder: func(text string) rval.Evaluator { return nil },
	}
}

type stubFunctionManager struct{}

func (stubFunctionManager) Lookup(name string, arity int) (rval.Function, bool) { return rval.Function{}, false }
func (stubFunctionManager) Register(name string, fn rval.Function)              {}

type cliOptions struct {
	scriptPath  string
	verbose     bool
	trace       bool
	printAST    bool
	threads     int
	flattenSep  string
	typeInfer   rval.TypeInferencing
	filterMode  bool
	negateFinal bool
	helpKeywords bool
}

const maxThreads = 64

// parseArgs follows util.ParseArgs's hand-rolled switch style: a flat scan
// of os.Args with flags consuming their following argument by name.
func parseArgs(args []string) (cliOptions, error) {
	opt := cliOptions{threads: 1, flattenSep: ":", typeInfer: rval.InferIntOrFloat}
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-help-keywords":
			opt.helpKeywords = true
		case "-vb":
			opt.verbose = true
		case "-trace":
			opt.trace = true
		case "-print-ast":
			opt.printAST = true
		case "-filter":
			opt.filterMode = true
		case "-x":
			opt.negateFinal = true
		case "-t":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag -t but no argument")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 || n > maxThreads {
				return opt, fmt.Errorf("-t expects an integer thread count in range [1, %d]", maxThreads)
			}
			opt.threads = n
			i++
		case "-flatsep":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag -flatsep but no argument")
			}
			opt.flattenSep = args[i+1]
			i++
		case "-s":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag -s but no argument")
			}
			switch args[i+1] {
			case "string":
				opt.typeInfer = rval.PassThroughStrings
			case "int":
				opt.typeInfer = rval.InferInt
			case "int-or-float":
				opt.typeInfer = rval.InferIntOrFloat
			default:
				return opt, fmt.Errorf("unexpected type_inferencing mode: %s", args[i+1])
			}
			i++
		default:
			if strings.HasPrefix(args[i], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i])
			}
			opt.scriptPath = args[i]
		}
		i++
	}
	return opt, nil
}

func printHelp() {
	fmt.Println("mlrdsl [flags] script.mlr   (reads NDJSON records on stdin)")
	fmt.Println()
	fmt.Println("  -vb               verbose logging")
	fmt.Println("  -trace            log each executed statement at debug level (shown with -vb)")
	fmt.Println("  -print-ast        log the parsed AST at debug level before execution (shown with -vb)")
	fmt.Println("  -filter           treat the main block as a filter-mode script")
	fmt.Println("  -x                negate the final filter result")
	fmt.Println("  -t N              parallel stack-allocation worker count")
	fmt.Println("  -flatsep SEP      oosvar emitp flatten separator (default \":\")")
	fmt.Println("  -s MODE           type_inferencing mode: string|int|int-or-float")
	fmt.Println("  -help-keywords    list recognized DSL statement keywords and exit")
}

func run(opt cliOptions, logger *zap.SugaredLogger) error {
	if opt.helpKeywords {
		for _, kw := range cst.KeywordHelp() {
			fmt.Printf("%-36s %s\n", kw.Keyword, kw.Description)
		}
		return nil
	}
	if opt.scriptPath == "" {
		return fmt.Errorf("no script file given")
	}

	srcBytes, err := os.ReadFile(opt.scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	prog, err := ParseScript(string(srcBytes))
	if err != nil {
		return fmt.Errorf("parsing script: %w", err)
	}

	sinks := cst.NewSinks(os.Stdout, os.Stderr)
	defer sinks.Close()

	built, err := cst.Alloc(prog, NewCollaborators(), cst.Options{
		TypeInferencing:        opt.typeInfer,
		DoFinalFilter:          opt.filterMode,
		NegateFinalFilter:      opt.negateFinal,
		PrintAST:               opt.printAST,
		Trace:                  opt.trace,
		OosvarFlattenSeparator: opt.flattenSep,
		Threads:                opt.threads,
		Logger:                 logger,
	})
	if err != nil {
		logger.Errorw("build failed", "error", err)
		return err
	}
	defer built.Free()

	vars := runtime.NewVars()
	vars.Trace = opt.trace
	vars.TypeInferencingMode = int(opt.typeInfer)

	beginOut := cst.NewOutputs(sinks, opt.flattenSep)
	built.ExecuteBegin(vars, beginOut)
	writeEmitted(beginOut)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := decodeRecord(line)
		if err != nil {
			logger.Warnw("skipping malformed record", "error", err)
			continue
		}
		vars.Rec = rec
		out := cst.NewOutputs(sinks, opt.flattenSep)
		built.ExecuteMain(vars, out)
		if out.ShouldEmitRec {
			writeSrec(vars.Rec)
		}
		writeEmitted(out)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input stream: %w", err)
	}

	endOut := cst.NewOutputs(sinks, opt.flattenSep)
	built.ExecuteEnd(vars, endOut)
	writeEmitted(endOut)
	return nil
}

func decodeRecord(line string) (*runtime.Srec, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, err
	}
	rec := runtime.NewSrec()
	for k, v := range fields {
		rec.Set(k, fmt.Sprintf("%v", v))
	}
	return rec, nil
}

func writeSrec(rec *runtime.Srec) {
	fields := rec.Fields()
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}

func writeEmitted(out *cst.Outputs) {
	for _, rec := range out.OutRecs {
		writeSrec(rec)
	}
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "mlrdsl: %s\n", err)
		os.Exit(1)
	}

	var logger *zap.SugaredLogger
	if opt.verbose {
		l, _ := zap.NewDevelopment()
		logger = l.Sugar()
	} else {
		logger = zap.NewNop().Sugar()
	}
	defer logger.Sync()

	if err := run(opt, logger); err != nil {
		fmt.Fprintf(os.Stderr, "mlrdsl: %s\n", err)
		os.Exit(1)
	}
}
