// Package testreport implements the module test runner spec §6
// describes: a module `amends "pkl:test"` may declare `facts { ["name"]
// { boolExpr; boolExpr; ... } }` and `examples { ["name"] { value;
// value; ... } }`; this package runs both, and renders the result as
// JUnit XML. Run-correlation ids use github.com/oklog/ulid/v2 the same
// way holomush's internal/core/ulid.go generates monotonic ULIDs.
package testreport

import (
	"bytes"
	"crypto/rand"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pklgo/pklcore/render"
	"github.com/pklgo/pklcore/value"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewRunID generates a ULID identifying one test-runner invocation,
// for correlating aggregated suites from the same run.
func NewRunID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// Status is one test case's outcome.
type Status int

const (
	Passed Status = iota
	Failed
	Errored
	ExampleWritten
)

// Case is one fact or example evaluation result.
type Case struct {
	Classname string // "MODULE.facts" or "MODULE.examples"
	Name      string
	Status    Status
	Message   string
	Detail    string
}

// Suite aggregates every fact/example case for one tested module.
type Suite struct {
	ModuleName string
	Cases      []Case
}

// RunModule evaluates a loaded module's `facts` and `examples`
// properties, if present, against ev/root, comparing each example's
// rendered XML output to a sibling `<name>.xml` file under exampleDir
// (writing it on first run, per spec §6 "on first run (no expected
// file) it is written and the test records 'example(s) written'").
func RunModule(ev value.Evaluator, moduleName string, root value.ObjectValue, exampleDir string) (*Suite, error) {
	suite := &Suite{ModuleName: moduleName}

	if facts, ok := readOptional(ev, root, "facts"); ok {
		cases, err := runFacts(ev, moduleName, facts)
		if err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, cases...)
	}

	if examples, ok := readOptional(ev, root, "examples"); ok {
		cases, err := runExamples(ev, moduleName, examples, exampleDir)
		if err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, cases...)
	}

	return suite, nil
}

func readOptional(ev value.Evaluator, root value.ObjectValue, name string) (value.ObjectValue, bool) {
	v, err := root.Read(ev, root, value.NameKey(name))
	if err != nil {
		return nil, false
	}
	ov, ok := v.(value.ObjectValue)
	return ov, ok
}

// runFacts evaluates every ["name"] { boolExpr; ... } entry: a fact
// passes iff every one of its sub-expressions is true (spec §6).
func runFacts(ev value.Evaluator, moduleName string, facts value.ObjectValue) ([]Case, error) {
	var cases []Case
	err := facts.ForEachMember(func(key value.MemberKey) error {
		name := key.String()
		entry, err := facts.Read(ev, facts, key)
		if err != nil {
			cases = append(cases, Case{Classname: moduleName + ".facts", Name: name, Status: Errored, Message: err.Error()})
			return nil
		}
		list, ok := entry.(value.ObjectValue)
		if !ok {
			cases = append(cases, Case{Classname: moduleName + ".facts", Name: name, Status: Errored, Message: "fact body is not a listing of expressions"})
			return nil
		}
		c := Case{Classname: moduleName + ".facts", Name: name, Status: Passed}
		idx := int64(0)
		walkErr := list.ForEachMember(func(ik value.MemberKey) error {
			v, err := list.Read(ev, list, ik)
			if err != nil {
				c.Status, c.Message = Errored, err.Error()
				return nil
			}
			b, ok := v.(value.Bool)
			if !ok || !bool(b) {
				c.Status = Failed
				c.Message = fmt.Sprintf("sub-expression %d of fact %q did not evaluate to true", idx, name)
			}
			idx++
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
		cases = append(cases, c)
		return nil
	})
	return cases, err
}

// runExamples evaluates every ["name"] { value; ... } entry, renders
// it to XML (render.XML, this core's one built-in renderer) and
// compares it against exampleDir/<name>.xml.
func runExamples(ev value.Evaluator, moduleName string, examples value.ObjectValue, exampleDir string) ([]Case, error) {
	renderer := render.XML{}
	var cases []Case
	err := examples.ForEachMember(func(key value.MemberKey) error {
		name := key.String()
		entry, err := examples.Read(ev, examples, key)
		if err != nil {
			cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: Errored, Message: err.Error()})
			return nil
		}
		ov, ok := entry.(value.ObjectValue)
		if !ok {
			cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: Errored, Message: "example body is not an object"})
			return nil
		}
		got, err := renderer.Render(ev, ov)
		if err != nil {
			cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: Errored, Message: err.Error()})
			return nil
		}

		path := filepath.Join(exampleDir, name+".xml")
		want, err := os.ReadFile(path)
		if err != nil {
			if writeErr := os.WriteFile(path, got, 0o644); writeErr != nil {
				cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: Errored, Message: writeErr.Error()})
				return nil
			}
			cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: ExampleWritten, Message: "example written"})
			return nil
		}

		if !bytes.Equal(want, got) {
			cases = append(cases, Case{
				Classname: moduleName + ".examples", Name: name, Status: Failed,
				Message: fmt.Sprintf("output mismatch: expected %d bytes, got %d bytes", len(want), len(got)),
				Detail:  string(got),
			})
			return nil
		}

		cases = append(cases, Case{Classname: moduleName + ".examples", Name: name, Status: Passed})
		return nil
	})
	return cases, err
}

// junitTestsuite/junitTestcase mirror the shape spec §6 names: one
// <testsuite name="MODULE"> per tested module, one
// <testcase classname="MODULE.facts|examples" name="FACT"> each, with
// <failure>/<error> children for the respective outcomes. There is no
// third-party JUnit-XML library anywhere in the retrieved pack, so
// this is built directly on the standard library's encoding/xml — the
// shape is small and fixed, and stdlib xml marshaling is the ordinary
// idiomatic choice for it.
type junitTestsuite struct {
	XMLName xml.Name       `xml:"testsuite"`
	Name    string         `xml:"name,attr"`
	Tests   int            `xml:"tests,attr"`
	Failures int           `xml:"failures,attr"`
	Errors  int            `xml:"errors,attr"`
	Cases   []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Classname string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Error     *junitMessage `xml:"error,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitTestsuites struct {
	XMLName xml.Name          `xml:"testsuites"`
	Name    string            `xml:"name,attr"`
	Suites  []junitTestsuite  `xml:"testsuite"`
}

// WriteJUnit renders one or more Suites as JUnit XML (spec §6:
// "Aggregation mode wraps multiple suites in <testsuites name='...'>").
func WriteJUnit(suites []*Suite, runID string) ([]byte, error) {
	converted := make([]junitTestsuite, 0, len(suites))
	for _, s := range suites {
		ts := junitTestsuite{Name: s.ModuleName, Tests: len(s.Cases)}
		for _, c := range s.Cases {
			tc := junitTestcase{Classname: c.Classname, Name: c.Name}
			switch c.Status {
			case Failed:
				ts.Failures++
				tc.Failure = &junitMessage{Message: c.Message, Body: c.Detail}
			case Errored:
				ts.Errors++
				tc.Error = &junitMessage{Message: c.Message, Body: c.Detail}
			}
			ts.Cases = append(ts.Cases, tc)
		}
		converted = append(converted, ts)
	}

	if len(converted) == 1 {
		return xml.MarshalIndent(converted[0], "", "  ")
	}
	return xml.MarshalIndent(junitTestsuites{Name: runID, Suites: converted}, "", "  ")
}

// ExitCode maps a run's outcome to spec §6's exit-code table: 0
// success; 1 generic error; 10 tests wrote new examples; 11
// formatting violations (not applicable to this in-process runner, so
// never returned here); others reserved.
func ExitCode(suites []*Suite) int {
	wroteExample := false
	for _, s := range suites {
		for _, c := range s.Cases {
			switch c.Status {
			case Failed, Errored:
				return 1
			case ExampleWritten:
				wroteExample = true
			}
		}
	}
	if wroteExample {
		return 10
	}
	return 0
}
