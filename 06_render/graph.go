package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// InputSpec is one "-i" input with the options that precede it
type InputSpec struct {
	Options []string
	Path    string
}

// FilterStage is one node of the filter graph: [in...]filter[out...]
type FilterStage struct {
	Inputs  []string
	Filter  string
	Outputs []string
}

func (s FilterStage) String() string {
	var sb strings.Builder
	for _, in := range s.Inputs {
		sb.WriteString("[" + in + "]")
	}
	sb.WriteString(s.Filter)
	for _, out := range s.Outputs {
		sb.WriteString("[" + out + "]")
	}
	return sb.String()
}

// OutputSpec maps graph labels to the single output file
type OutputSpec struct {
	Maps    []string
	Options []string
	Path    string
}

// GraphSpec is the complete description of one render invocation.
// It is built and validated before anything runs.
type GraphSpec struct {
	Inputs []InputSpec
	Stages []FilterStage
	Output OutputSpec
}

var streamRef = regexp.MustCompile(`^(\d+):([va])$`)

// Validate checks that every label is defined before it is used, every input
// stream reference points at a declared input, and the output is mapped.
func (g GraphSpec) Validate() error {
	if len(g.Inputs) == 0 {
		return fmt.Errorf("graph has no inputs")
	}
	for i, in := range g.Inputs {
		if in.Path == "" {
			return fmt.Errorf("input %d has no path", i)
		}
	}

	defined := make(map[string]bool)
	known := func(label string) bool {
		if m := streamRef.FindStringSubmatch(label); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n < len(g.Inputs)
		}
		return defined[label]
	}

	for i, st := range g.Stages {
		if st.Filter == "" {
			return fmt.Errorf("stage %d has no filter", i)
		}
		for _, in := range st.Inputs {
			if !known(in) {
				return fmt.Errorf("stage %d (%s) uses undefined label %q", i, st.Filter, in)
			}
		}
		for _, out := range st.Outputs {
			if defined[out] || streamRef.MatchString(out) {
				return fmt.Errorf("stage %d redefines label %q", i, out)
			}
			defined[out] = true
		}
	}

	if g.Output.Path == "" {
		return fmt.Errorf("graph has no output path")
	}
	if len(g.Output.Maps) == 0 {
		return fmt.Errorf("graph output maps no streams")
	}
	for _, m := range g.Output.Maps {
		if !known(m) {
			return fmt.Errorf("output maps undefined label %q", m)
		}
	}
	return nil
}

// FilterComplex joins the stages into one -filter_complex value
func (g GraphSpec) FilterComplex() string {
	parts := make([]string, len(g.Stages))
	for i, st := range g.Stages {
		parts[i] = st.String()
	}
	return strings.Join(parts, ";")
}

// Args flattens the graph into the engine's argument vector. The result
// depends only on the graph, so equal graphs give equal commands.
func (g GraphSpec) Args() []string {
	args := []string{"-y"}
	for _, in := range g.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if len(g.Stages) > 0 {
		args = append(args, "-filter_complex", g.FilterComplex())
	}
	for _, m := range g.Output.Maps {
		if streamRef.MatchString(m) {
			args = append(args, "-map", m)
		} else {
			args = append(args, "-map", "["+m+"]")
		}
	}
	args = append(args, g.Output.Options...)
	return append(args, g.Output.Path)
}
