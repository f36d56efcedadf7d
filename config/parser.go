// Package config implements a parser for the bespoke, line-oriented
// configuration grammar (router-id / input-ports / outputs / period /
// timeout / garbage directives) that produces a validated state.Config
// record. It is hand rolled rather than built on a serialization library
// because the grammar itself is bespoke, not YAML/JSON/TOML. Errors are
// reported through configerr's nested-cause chain, one per field.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/encodeous/ripd/configerr"
	"github.com/encodeous/ripd/state"
)

const (
	minPort = 1024
	maxPort = 64000
	minCost = 1
	maxCost = 16
)

// directives already seen while parsing, to enforce "at most once".
type seen struct {
	routerID, inputPorts, outputs, period, timeout, garbage bool
}

// raw accumulates parsed directive values before cross-field validation and
// defaulting are applied.
type raw struct {
	routerID   int
	haveID     bool
	inputPorts []int
	outputs    []state.OutputEndpoint
	period     int
	timeout    int
	garbage    int
	havePeriod bool
	haveTimeout bool
	haveGarbage bool
}

// Load reads and parses the configuration file at path, returning a fully
// validated state.Config or a *configerr.Error describing the first
// problem found.
func Load(path string) (*state.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configerr.Wrap(path, configerr.InvalidDirective, "cannot open config file", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the directive grammar from r and returns a validated config.
func Parse(r io.Reader) (*state.Config, error) {
	var s seen
	var rc raw

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ctx := fmt.Sprintf("line %d", lineNo)
		if err := parseLine(ctx, line, &s, &rc); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, configerr.Wrap("config file", configerr.InvalidDirective, "failed to read", err)
	}

	return finalize(&s, &rc)
}

func parseLine(ctx, line string, s *seen, rc *raw) error {
	fields := strings.SplitN(line, " ", 2)
	directive := fields[0]
	var arg string
	if len(fields) > 1 {
		arg = strings.TrimSpace(fields[1])
	}

	switch directive {
	case "router-id":
		if s.routerID {
			return configerr.New(ctx, configerr.Collision, "router-id may appear at most once")
		}
		s.routerID = true
		id, err := parseNonNegativeInt(ctx, "router-id", arg)
		if err != nil {
			return err
		}
		rc.routerID = id
		rc.haveID = true

	case "input-ports":
		if s.inputPorts {
			return configerr.New(ctx, configerr.Collision, "input-ports may appear at most once")
		}
		s.inputPorts = true
		ports, err := parsePortList(ctx, arg)
		if err != nil {
			return err
		}
		rc.inputPorts = ports

	case "outputs":
		if s.outputs {
			return configerr.New(ctx, configerr.Collision, "outputs may appear at most once")
		}
		s.outputs = true
		outs, err := parseOutputList(ctx, arg)
		if err != nil {
			return err
		}
		rc.outputs = outs

	case "period":
		if s.period {
			return configerr.New(ctx, configerr.Collision, "period may appear at most once")
		}
		s.period = true
		v, err := parsePositiveInt(ctx, "period", arg, 1)
		if err != nil {
			return err
		}
		rc.period = v
		rc.havePeriod = true

	case "timeout":
		if s.timeout {
			return configerr.New(ctx, configerr.Collision, "timeout may appear at most once")
		}
		s.timeout = true
		v, err := parsePositiveInt(ctx, "timeout", arg, 6)
		if err != nil {
			return err
		}
		rc.timeout = v
		rc.haveTimeout = true

	case "garbage":
		if s.garbage {
			return configerr.New(ctx, configerr.Collision, "garbage may appear at most once")
		}
		s.garbage = true
		v, err := parsePositiveInt(ctx, "garbage", arg, 8)
		if err != nil {
			return err
		}
		rc.garbage = v
		rc.haveGarbage = true

	default:
		return configerr.New(ctx, configerr.InvalidDirective, fmt.Sprintf("unknown directive %q", directive))
	}
	return nil
}

func parseNonNegativeInt(ctx, field, arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("%s must be an integer", field), err)
	}
	if v < 0 {
		return 0, configerr.New(ctx, configerr.OutOfRange, fmt.Sprintf("%s must be non-negative", field))
	}
	return v, nil
}

func parsePositiveInt(ctx, field, arg string, min int) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("%s must be an integer", field), err)
	}
	if v < min {
		return 0, configerr.New(ctx, configerr.OutOfRange, fmt.Sprintf("%s must be >= %d", field, min))
	}
	return v, nil
}

func parsePortList(ctx, arg string) ([]int, error) {
	parts := splitList(arg)
	if len(parts) == 0 {
		return nil, configerr.New(ctx, configerr.Empty, "input-ports must not be empty")
	}
	seenPorts := make(map[int]bool)
	ports := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("port %q must be an integer", p), err)
		}
		if v < minPort || v > maxPort {
			return nil, configerr.New(ctx, configerr.OutOfRange, fmt.Sprintf("port %d out of range [%d, %d]", v, minPort, maxPort))
		}
		if seenPorts[v] {
			return nil, configerr.New(ctx, configerr.Collision, fmt.Sprintf("port %d listed more than once", v))
		}
		seenPorts[v] = true
		ports = append(ports, v)
	}
	return ports, nil
}

func parseOutputList(ctx, arg string) ([]state.OutputEndpoint, error) {
	parts := splitList(arg)
	if len(parts) == 0 {
		return nil, configerr.New(ctx, configerr.Empty, "outputs must not be empty")
	}
	outs := make([]state.OutputEndpoint, 0, len(parts))
	seenPorts := make(map[int]bool)
	seenIds := make(map[state.RouterId]bool)
	for _, triple := range parts {
		fields := strings.Split(triple, "-")
		if len(fields) != 3 {
			return nil, configerr.New(ctx, configerr.InvalidDirective, fmt.Sprintf("output %q must be port-metric-id", triple))
		}
		port, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("output port %q must be an integer", fields[0]), err)
		}
		if port < minPort || port > maxPort {
			return nil, configerr.New(ctx, configerr.OutOfRange, fmt.Sprintf("output port %d out of range [%d, %d]", port, minPort, maxPort))
		}
		metric, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("output metric %q must be an integer", fields[1]), err)
		}
		if metric < minCost || metric > maxCost {
			return nil, configerr.New(ctx, configerr.OutOfRange, fmt.Sprintf("output metric %d out of range [%d, %d]", metric, minCost, maxCost))
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, configerr.Wrap(ctx, configerr.NotANumber, fmt.Sprintf("output router-id %q must be an integer", fields[2]), err)
		}
		if id < 0 {
			return nil, configerr.New(ctx, configerr.OutOfRange, "output router-id must be non-negative")
		}
		if seenPorts[port] {
			return nil, configerr.New(ctx, configerr.Collision, fmt.Sprintf("output port %d listed more than once", port))
		}
		if seenIds[state.RouterId(id)] {
			return nil, configerr.New(ctx, configerr.Collision, fmt.Sprintf("output router-id %d listed more than once", id))
		}
		seenPorts[port] = true
		seenIds[state.RouterId(id)] = true
		outs = append(outs, state.OutputEndpoint{Port: port, Cost: state.Metric(metric), NodeId: state.RouterId(id)})
	}
	return outs, nil
}

func splitList(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// finalize applies the timer-inference rules, the port/id collision checks
// that span multiple directives, and builds the final state.Config.
func finalize(s *seen, rc *raw) (*state.Config, error) {
	if !rc.haveID {
		return nil, configerr.New("config file", configerr.Empty, "router-id is required")
	}
	if len(rc.inputPorts) == 0 {
		return nil, configerr.New("config file", configerr.Empty, "input-ports is required")
	}
	if len(rc.outputs) == 0 {
		return nil, configerr.New("config file", configerr.Empty, "outputs is required")
	}

	period, timeout, garbage, err := resolveTimers(rc)
	if err != nil {
		return nil, err
	}

	if err := checkGlobalCollisions(rc); err != nil {
		return nil, err
	}

	return &state.Config{
		Id:      state.RouterId(rc.routerID),
		Inputs:  rc.inputPorts,
		Outputs: rc.outputs,
		Period:  period,
		Timeout: timeout,
		Garbage: garbage,
	}, nil
}

// resolveTimers implements the defaulting/inference table: missing timers
// are inferred from whichever of period/timeout/garbage was given; if more
// than one was given they must agree with the 1:6:8 ratio.
func resolveTimers(rc *raw) (period, timeout, garbage int, err error) {
	switch {
	case rc.havePeriod && rc.haveTimeout && rc.haveGarbage:
		if rc.timeout != 6*rc.period || rc.garbage != 8*rc.period {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch,
				fmt.Sprintf("timeout=%d and garbage=%d must equal 6*period and 8*period (period=%d)", rc.timeout, rc.garbage, rc.period))
		}
		return rc.period, rc.timeout, rc.garbage, nil

	case rc.havePeriod && rc.haveTimeout:
		if rc.timeout != 6*rc.period {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch, "timeout must equal 6*period")
		}
		return rc.period, rc.timeout, 8 * rc.period, nil

	case rc.havePeriod && rc.haveGarbage:
		if rc.garbage != 8*rc.period {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch, "garbage must equal 8*period")
		}
		return rc.period, 6 * rc.period, rc.garbage, nil

	case rc.havePeriod:
		return rc.period, 6 * rc.period, 8 * rc.period, nil

	case rc.haveTimeout && rc.haveGarbage:
		if rc.timeout%6 != 0 || rc.garbage%8 != 0 || rc.timeout/6 != rc.garbage/8 {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch, "timeout and garbage must both be consistent with a single period")
		}
		return rc.timeout / 6, rc.timeout, rc.garbage, nil

	case rc.haveTimeout:
		if rc.timeout%6 != 0 {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch, "timeout must be a multiple of 6 to infer period")
		}
		p := rc.timeout / 6
		return p, rc.timeout, 8 * p, nil

	case rc.haveGarbage:
		if rc.garbage%8 != 0 {
			return 0, 0, 0, configerr.New("config file", configerr.RatioMismatch, "garbage must be a multiple of 8 to infer period")
		}
		p := rc.garbage / 8
		return p, 6 * p, rc.garbage, nil

	default:
		return 30, 180, 240, nil
	}
}

func checkGlobalCollisions(rc *raw) error {
	usedPorts := make(map[int]bool)
	for _, p := range rc.inputPorts {
		usedPorts[p] = true
	}
	usedIds := make(map[state.RouterId]bool)
	usedIds[state.RouterId(rc.routerID)] = true

	for _, o := range rc.outputs {
		if usedPorts[o.Port] {
			return configerr.New("config file", configerr.Collision, fmt.Sprintf("output port %d collides with an input port or another output", o.Port))
		}
		usedPorts[o.Port] = true
		if usedIds[o.NodeId] {
			return configerr.New("config file", configerr.Collision, fmt.Sprintf("output router-id %d collides with this router or another output", o.NodeId))
		}
		usedIds[o.NodeId] = true
	}
	return nil
}
